package knowledge

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/aihub/ragbot-go/internal/errors"
	"github.com/aihub/ragbot-go/internal/logger"
	"go.uber.org/zap"
)

// DocumentLoader 文档加载器：将文件或纯文本转换为带元数据的Document。
// 解析失败和不支持的格式都返回空结果而不是错误，
// 单个文档的问题不影响其他文档的摄取。
type DocumentLoader struct {
	parsers []FileParser
}

// NewDocumentLoader 创建文档加载器
func NewDocumentLoader() *DocumentLoader {
	return &DocumentLoader{
		parsers: []FileParser{
			&PDFParser{},
			&WordParser{},
			&ExcelParser{},
			&TextParser{},
		},
	}
}

// LoadFile 从文件加载文档。每个"页"（PDF页、Excel工作表）产出
// 一个Document。不支持的格式或解析失败返回空列表。
func (l *DocumentLoader) LoadFile(path string, extra map[string]string) []Document {
	filename := filepath.Base(path)

	parser := l.parserFor(filename)
	if parser == nil {
		logger.Warn("Unsupported file type",
			zap.String("filename", filename),
			zap.String("extension", filepath.Ext(filename)),
			zap.String("code", string(apperrors.ErrCodeUnsupportedFormat)))
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Error("Failed to stat file", zap.String("path", path), zap.Error(err))
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Error("Failed to open file", zap.String("path", path), zap.Error(err))
		return nil
	}
	defer f.Close()

	pages, err := parser.Parse(f, filename)
	if err != nil {
		logger.Error("Failed to parse file", zap.String("path", path), zap.Error(err))
		return nil
	}

	documents := make([]Document, 0, len(pages))
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		documents = append(documents, Document{
			Content: page,
			Metadata: Metadata{
				Source:    path,
				Filename:  filename,
				FileType:  strings.ToLower(filepath.Ext(filename)),
				FileSize:  info.Size(),
				PageIndex: i,
				Extra:     extra,
			},
		})
	}

	logger.Info("Loaded documents from file",
		zap.String("filename", filename),
		zap.Int("pages", len(documents)))
	return documents
}

// LoadText 将纯文本包装为单个Document
func (l *DocumentLoader) LoadText(text string, extra map[string]string) Document {
	return Document{
		Content: text,
		Metadata: Metadata{
			Source: SourceTextInput,
			Extra:  extra,
		},
	}
}

// SupportedFormats 返回支持的文件扩展名列表
func (l *DocumentLoader) SupportedFormats() []string {
	var formats []string
	for _, parser := range l.parsers {
		formats = append(formats, parser.Extensions()...)
	}
	sort.Strings(formats)
	return formats
}

// Supports 检查文件格式是否受支持
func (l *DocumentLoader) Supports(filename string) bool {
	return l.parserFor(filename) != nil
}

func (l *DocumentLoader) parserFor(filename string) FileParser {
	for _, parser := range l.parsers {
		if parser.Supports(filename) {
			return parser
		}
	}
	return nil
}
