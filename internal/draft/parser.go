// Package draft converts unstructured input (free text or a receipt
// image) into a structured expense draft via an inference call.
package draft

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"chitieu/internal/core"
	"chitieu/internal/gemini"
)

// ErrUnparseable marks a malformed or empty model response. Callers must
// treat it as "ask the user to clarify and retry", never as an empty
// draft to insert.
var ErrUnparseable = errors.New("draft: unparseable input")

// Parser is the outbound boundary of the draft flow.
type Parser interface {
	ParseText(ctx context.Context, text string) (core.Draft, error)
	ParseImage(ctx context.Context, data []byte, mimeType string) (core.Draft, error)
}

// GeminiParser implements Parser against the Gemini generateContent API.
// Generated labels are Vietnamese with VND amounts, matching the app's
// locale.
type GeminiParser struct {
	client *gemini.Client
}

func NewGeminiParser(client *gemini.Client) *GeminiParser {
	return &GeminiParser{client: client}
}

var draftSchema = &gemini.Schema{
	Type: "OBJECT",
	Properties: map[string]*gemini.Schema{
		"item":     {Type: "STRING", Description: "Tên mục chi tiêu"},
		"amount":   {Type: "NUMBER", Description: "Số tiền (số)"},
		"category": {Type: "STRING", Description: "Danh mục ngắn bằng tiếng Việt (VD: Ăn uống, Di chuyển, Tiện ích)"},
		"purpose":  {Type: "STRING", Description: "Mục đích chi tiêu bằng tiếng Việt"},
	},
	Required: []string{"item", "amount", "category", "purpose"},
}

var generationConfig = &gemini.GenerationConfig{
	ResponseMIMEType: "application/json",
	ResponseSchema:   draftSchema,
}

// ParseText parses a free-text expense description.
func (p *GeminiParser) ParseText(ctx context.Context, text string) (core.Draft, error) {
	prompt := fmt.Sprintf(
		`Phân tích mô tả chi tiêu sau thành đối tượng JSON. Trả về tất cả văn bản bằng tiếng Việt (tên mục, danh mục, mục đích). Tiền tệ mặc định là VND: "%s"`,
		text)

	raw, err := p.client.GenerateContent(ctx, []gemini.Part{{Text: prompt}}, generationConfig)
	if err != nil {
		if errors.Is(err, gemini.ErrEmptyResponse) {
			return core.Draft{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		return core.Draft{}, fmt.Errorf("parse text: %w", err)
	}

	return p.decode(ctx, raw)
}

// ParseImage parses a receipt image into a draft.
func (p *GeminiParser) ParseImage(ctx context.Context, data []byte, mimeType string) (core.Draft, error) {
	parts := []gemini.Part{
		{InlineData: &gemini.InlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(data),
		}},
		{Text: "Trích xuất chi tiết chi tiêu từ ảnh hóa đơn thành đối tượng JSON. Trả về tất cả văn bản bằng tiếng Việt. Tiền tệ mặc định là VND."},
	}

	raw, err := p.client.GenerateContent(ctx, parts, generationConfig)
	if err != nil {
		if errors.Is(err, gemini.ErrEmptyResponse) {
			return core.Draft{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		return core.Draft{}, fmt.Errorf("parse image: %w", err)
	}

	return p.decode(ctx, raw)
}

func (p *GeminiParser) decode(ctx context.Context, raw string) (core.Draft, error) {
	var d core.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		slog.WarnContext(ctx, "Draft response is not valid JSON", "error", err)
		return core.Draft{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if err := d.Validate(); err != nil {
		slog.WarnContext(ctx, "Draft response failed validation", "error", err, "item", d.Item, "amount", d.Amount)
		return core.Draft{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return d, nil
}
