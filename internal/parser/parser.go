package parser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"multimodal-rag/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

const defaultPageNumber = 1

// ParseFile extracts the ordered content units of a document. Text-bearing
// formats yield text units with 1-based pages where the format has them;
// standalone image files yield a single image unit. The knowledge store
// never sees raw files, only these units.
func ParseFile(filePath string) ([]models.ContentUnit, error) {
	source := filepath.Base(filePath)
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return parsePDF(filePath, source)
	case ".docx":
		return parseDOCX(filePath, source)
	case ".pptx":
		return parsePPTX(filePath, source)
	case ".xlsx":
		return parseXLSX(filePath, source)
	case ".ods":
		return parseODS(filePath, source)
	case ".md", ".markdown":
		return parseMarkdown(filePath, source)
	case ".txt":
		return parseText(filePath, source)
	case ".png", ".jpg", ".jpeg":
		return parseImage(filePath, source)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func parsePDF(filePath, source string) ([]models.ContentUnit, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var units []models.ContentUnit
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		units = append(units, models.ContentUnit{
			Type:   models.UnitText,
			Text:   pageText,
			Page:   i,
			Source: source,
		})
	}
	return units, nil
}

func parseDOCX(filePath, source string) ([]models.ContentUnit, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc := r.Editable()
	var units []models.ContentUnit
	for _, p := range strings.Split(doc.GetContent(), "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		units = append(units, models.ContentUnit{
			Type:   models.UnitText,
			Text:   p,
			Page:   defaultPageNumber, // DOCX has no page numbers
			Source: source,
		})
	}
	return units, nil
}

func parsePPTX(filePath, source string) ([]models.ContentUnit, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var units []models.ContentUnit
	slideNum := 0
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slideNum++
		slideText := extractTextFromXML(string(data))
		if strings.TrimSpace(slideText) == "" {
			continue
		}
		units = append(units, models.ContentUnit{
			Type:   models.UnitText,
			Text:   slideText,
			Page:   slideNum, // slides stand in for pages
			Source: source,
		})
	}
	return units, nil
}

func parseXLSX(filePath, source string) ([]models.ContentUnit, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var units []models.ContentUnit
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		if strings.TrimSpace(text.String()) == "" {
			continue
		}
		units = append(units, models.ContentUnit{
			Type:   models.UnitText,
			Text:   text.String(),
			Page:   sheetNum + 1, // sheets stand in for pages
			Source: source,
		})
	}
	return units, nil
}

func parseODS(filePath, source string) ([]models.ContentUnit, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var units []models.ContentUnit
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		units = append(units, models.ContentUnit{
			Type:   models.UnitText,
			Text:   text.String(),
			Page:   sheetNum + 1,
			Source: source,
		})
	}
	return units, nil
}

// parseMarkdown strips formatting via the goldmark AST so headings and
// emphasis markers do not pollute the embedded text.
func parseMarkdown(filePath, source string) ([]models.ContentUnit, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader(data))

	var text strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				text.Write(node.Segment.Value(data))
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if !entering {
				text.WriteString("\n\n")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					text.Write(seg.Value(data))
				}
				text.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, nil
	}
	return []models.ContentUnit{{
		Type:   models.UnitText,
		Text:   text.String(),
		Page:   defaultPageNumber,
		Source: source,
	}}, nil
}

func parseText(filePath, source string) ([]models.ContentUnit, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []models.ContentUnit{{
		Type:   models.UnitText,
		Text:   string(data),
		Page:   defaultPageNumber,
		Source: source,
	}}, nil
}

func parseImage(filePath, source string) ([]models.ContentUnit, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return []models.ContentUnit{{
		Type:   models.UnitImage,
		Image:  data,
		Page:   defaultPageNumber,
		Source: source,
	}}, nil
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			text.WriteString(part[:endIdx] + " ")
		}
	}
	return text.String()
}
