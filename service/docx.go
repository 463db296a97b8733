package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// DocumentRenderer renders the terminal report into a document artifact
// on the run's output sink and returns the artifact name. The markdown
// implementation is the always-available fallback, so rendering as a
// whole cannot fail structurally.
type DocumentRenderer interface {
	Render(sink OutputSink, title, body string) (string, error)
}

// NewDocumentRenderer selects the renderer once at startup. DOCX output
// can be switched off in configuration, in which case the plain markdown
// fallback is used for the whole process lifetime.
func NewDocumentRenderer(disableDocx bool) DocumentRenderer {
	if disableDocx {
		return &markdownRenderer{}
	}
	return &docxRenderer{}
}

type markdownRenderer struct{}

func (r *markdownRenderer) Render(sink OutputSink, title, body string) (string, error) {
	name := "final.md"
	content := fmt.Sprintf("# %s\n\n%s", title, body)
	if err := sink.WriteArtifact(name, []byte(content)); err != nil {
		return "", err
	}
	return name, nil
}

type docxRenderer struct{}

// Render produces a minimal WordprocessingML package: heading = title,
// one paragraph per body line.
func (r *docxRenderer) Render(sink OutputSink, title, body string) (string, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", buildDocumentXML(title, body)},
	}
	for _, part := range parts {
		w, err := zw.Create(part.name)
		if err != nil {
			return "", fmt.Errorf("build docx: %w", err)
		}
		if _, err := w.Write([]byte(part.content)); err != nil {
			return "", fmt.Errorf("build docx: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("build docx: %w", err)
	}

	name := "final.docx"
	if err := sink.WriteArtifact(name, buf.Bytes()); err != nil {
		return "", err
	}
	return name, nil
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

func buildDocumentXML(title, body string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	sb.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t xml:space="preserve">`)
	sb.WriteString(escapeXML(title))
	sb.WriteString(`</w:t></w:r></w:p>`)
	for _, line := range strings.Split(body, "\n") {
		sb.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		sb.WriteString(escapeXML(line))
		sb.WriteString(`</w:t></w:r></w:p>`)
	}
	sb.WriteString(`</w:body></w:document>`)
	return sb.String()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	// bytes.Buffer writes never fail
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
