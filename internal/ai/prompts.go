package ai

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"BedrockMinutes/internal/model"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// detectLanguage 检测文本语言
//
// 简单规则: 中文字符占比 > 30% 判为中文，否则英文。
func detectLanguage(text string) string {
	var chinese, total int
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			continue
		}
		total++
		if r >= 0x4e00 && r <= 0x9fff {
			chinese++
		}
	}
	if total == 0 {
		return "English"
	}
	if float64(chinese)/float64(total) > 0.3 {
		return "Chinese (Simplified)"
	}
	return "English"
}

// formatTemplateStructure 把模板结构渲染成给模型看的章节说明
func formatTemplateStructure(t *model.Template) string {
	var b strings.Builder
	for _, sec := range t.Structure.Sections {
		fmt.Fprintf(&b, "## %s\n", sec.Name)
		for _, f := range sec.Fields {
			required := ""
			if f.Required {
				required = " (必填)"
			}
			fmt.Fprintf(&b, "- %s%s\n", f.Label, required)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

type extractPromptData struct {
	Transcript        string
	TemplateStructure string
	OutputLanguage    string
}

func renderExtractPrompt(transcript string, t *model.Template) (string, error) {
	var b strings.Builder
	err := promptTemplates.ExecuteTemplate(&b, "extract_info.tmpl", extractPromptData{
		Transcript:        transcript,
		TemplateStructure: formatTemplateStructure(t),
		OutputLanguage:    detectLanguage(transcript),
	})
	if err != nil {
		return "", fmt.Errorf("渲染提取 prompt 失败: %w", err)
	}
	return b.String(), nil
}

type promptFeedback struct {
	Type     string
	Location string
	Comment  string
}

type optimizePromptData struct {
	OriginalContent   string
	GlobalFeedbacks   []promptFeedback
	SpecificFeedbacks []promptFeedback
	OutputLanguage    string
}

func renderOptimizePrompt(draft string, feedbacks []model.FeedbackItem) (string, error) {
	data := optimizePromptData{
		OriginalContent: draft,
		// 输出语言与 draft 保持一致
		OutputLanguage: detectLanguage(draft),
	}
	for _, fb := range feedbacks {
		pf := promptFeedback{Type: string(fb.FeedbackType), Location: fb.Location, Comment: fb.Comment}
		if fb.IsGlobal() {
			data.GlobalFeedbacks = append(data.GlobalFeedbacks, pf)
		} else {
			data.SpecificFeedbacks = append(data.SpecificFeedbacks, pf)
		}
	}

	var b strings.Builder
	if err := promptTemplates.ExecuteTemplate(&b, "optimize_content.tmpl", data); err != nil {
		return "", fmt.Errorf("渲染优化 prompt 失败: %w", err)
	}
	return b.String(), nil
}
