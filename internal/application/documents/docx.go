package documents

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
)

// docxEpoch is the fixed timestamp stamped on every zip entry so that
// identical inputs produce byte-identical documents.
var docxEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// emuPerPixel converts pixel dimensions to English Metric Units at 96 DPI.
const emuPerPixel = 9525

// depiction is a validated PNG payload with its decoded dimensions.
type depiction struct {
	data   []byte
	width  int
	height int
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Default Extension="png" ContentType="image/png"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsWithImageXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`

// buildDocx produces a minimal OOXML word document: a bold title paragraph,
// body paragraphs (blank lines become paragraph breaks) and an optional
// embedded depiction after the title.
func buildDocx(title, body string, img *depiction) ([]byte, error) {
	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`)
	doc.WriteString(` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`)
	doc.WriteString(` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"`)
	doc.WriteString(` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`)
	doc.WriteString(` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
	doc.WriteString(`<w:body>`)

	doc.WriteString(`<w:p><w:r><w:rPr><w:b/><w:sz w:val="32"/></w:rPr><w:t xml:space="preserve">`)
	doc.WriteString(xmlEscape(title))
	doc.WriteString(`</w:t></w:r></w:p>`)

	if img != nil {
		writeInlineImage(&doc, img)
	}

	for _, para := range strings.Split(body, "\n") {
		doc.WriteString(`<w:p>`)
		if strings.TrimSpace(para) != "" {
			doc.WriteString(`<w:r><w:t xml:space="preserve">`)
			doc.WriteString(xmlEscape(para))
			doc.WriteString(`</w:t></w:r>`)
		}
		doc.WriteString(`</w:p>`)
	}

	doc.WriteString(`</w:body></w:document>`)

	type entry struct {
		name string
		data []byte
	}
	entries := []entry{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(rootRelsXML)},
		{"word/document.xml", []byte(doc.String())},
	}
	if img != nil {
		entries = append(entries,
			entry{"word/_rels/document.xml.rels", []byte(documentRelsWithImageXML)},
			entry{"word/media/image1.png", img.data})
	} else {
		entries = append(entries, entry{"word/_rels/document.xml.rels", []byte(documentRelsXML)})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: docxEpoch,
		})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeAssemblyFailed, "failed to write document entry")
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeAssemblyFailed, "failed to write document entry")
		}
	}
	if err := zw.Close(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAssemblyFailed, "failed to finalize document")
	}
	return buf.Bytes(), nil
}

// writeInlineImage emits the DrawingML block for the embedded depiction.
func writeInlineImage(doc *strings.Builder, img *depiction) {
	cx := img.width * emuPerPixel
	cy := img.height * emuPerPixel
	doc.WriteString(`<w:p><w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">`)
	fmt.Fprintf(doc, `<wp:extent cx="%d" cy="%d"/>`, cx, cy)
	doc.WriteString(`<wp:docPr id="1" name="molecule"/>`)
	doc.WriteString(`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">`)
	doc.WriteString(`<pic:pic>`)
	doc.WriteString(`<pic:nvPicPr><pic:cNvPr id="1" name="molecule"/><pic:cNvPicPr/></pic:nvPicPr>`)
	doc.WriteString(`<pic:blipFill><a:blip r:embed="rId1"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>`)
	doc.WriteString(`<pic:spPr><a:xfrm><a:off x="0" y="0"/>`)
	fmt.Fprintf(doc, `<a:ext cx="%d" cy="%d"/>`, cx, cy)
	doc.WriteString(`</a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>`)
	doc.WriteString(`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`)
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}
