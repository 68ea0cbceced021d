package knowledge

// Metadata 文档来源元数据。必填字段显式声明，
// 其余通过Extra扩展，保留来源追溯能力。
type Metadata struct {
	Source    string            `json:"source"`
	Filename  string            `json:"filename,omitempty"`
	FileType  string            `json:"file_type,omitempty"`
	FileSize  int64             `json:"file_size,omitempty"`
	PageIndex int               `json:"page_index,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// SourceTextInput 纯文本输入的来源标识
const SourceTextInput = "text_input"

// Document 表示一段带来源信息的文本（加载器产出，分块器消费）
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Chunk 表示分块后的文本结构。Text是源文档内容的连续子串，
// 元数据从源文档继承。
type Chunk struct {
	Index    int      `json:"index"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}
