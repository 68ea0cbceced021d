package knowledge

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// FileParser 文件解析器接口。Parse按"页"返回文本：
// PDF按物理页、Excel按工作表，其余格式整体为一页。
type FileParser interface {
	Parse(reader io.Reader, filename string) ([]string, error)
	Supports(filename string) bool
	Extensions() []string
}

// TextParser 文本文件解析器
type TextParser struct{}

func (p *TextParser) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".txt" || ext == ".md" || ext == ".markdown"
}

func (p *TextParser) Extensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

func (p *TextParser) Parse(reader io.Reader, filename string) ([]string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return []string{string(content)}, nil
}

// PDFParser PDF文件解析器，按页提取文本
type PDFParser struct{}

func (p *PDFParser) Supports(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == ".pdf"
}

func (p *PDFParser) Extensions() []string {
	return []string{".pdf"}
}

func (p *PDFParser) Parse(reader io.Reader, filename string) ([]string, error) {
	pdfBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取PDF文件失败: %w", err)
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(pdfBytes))
	if err != nil {
		return nil, fmt.Errorf("解析PDF失败: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("获取PDF页数失败: %w", err)
	}

	// 提取失败的页用空串占位，保持页序号与物理页一致
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			pages = append(pages, "")
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			pages = append(pages, "")
			continue
		}

		text, err := ex.ExtractText()
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}

	return pages, nil
}

// WordParser Word文档解析器
type WordParser struct{}

func (p *WordParser) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".docx" || ext == ".doc"
}

func (p *WordParser) Extensions() []string {
	return []string{".docx", ".doc"}
}

func (p *WordParser) Parse(reader io.Reader, filename string) ([]string, error) {
	docBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取Word文件失败: %w", err)
	}

	// 仅支持.docx格式
	if strings.ToLower(filepath.Ext(filename)) == ".doc" {
		return nil, fmt.Errorf("暂不支持.doc格式，请使用.docx格式")
	}

	readerAt := bytes.NewReader(docBytes)
	doc, err := document.Read(readerAt, int64(len(docBytes)))
	if err != nil {
		return nil, fmt.Errorf("解析Word文档失败: %w", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			textBuilder.WriteString(run.Text())
		}
		textBuilder.WriteString("\n")
	}

	return []string{textBuilder.String()}, nil
}

// ExcelParser Excel文件解析器，每个工作表作为一页
type ExcelParser struct{}

func (p *ExcelParser) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".xlsx" || ext == ".xls"
}

func (p *ExcelParser) Extensions() []string {
	return []string{".xlsx", ".xls"}
}

func (p *ExcelParser) Parse(reader io.Reader, filename string) ([]string, error) {
	excelBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取Excel文件失败: %w", err)
	}

	// 仅支持.xlsx格式
	if strings.ToLower(filepath.Ext(filename)) == ".xls" {
		return nil, fmt.Errorf("暂不支持.xls格式，请使用.xlsx格式")
	}

	readerAt := bytes.NewReader(excelBytes)
	ss, err := spreadsheet.Read(readerAt, int64(len(excelBytes)))
	if err != nil {
		return nil, fmt.Errorf("解析Excel文档失败: %w", err)
	}
	defer ss.Close()

	var sheets []string
	for _, sheet := range ss.Sheets() {
		var textBuilder strings.Builder
		textBuilder.WriteString(fmt.Sprintf("工作表: %s\n", sheet.Name()))

		for _, row := range sheet.Rows() {
			var rowText []string
			for _, cell := range row.Cells() {
				rowText = append(rowText, cell.GetString())
			}
			if len(rowText) > 0 {
				textBuilder.WriteString(strings.Join(rowText, "\t"))
				textBuilder.WriteString("\n")
			}
		}
		sheets = append(sheets, textBuilder.String())
	}

	return sheets, nil
}
