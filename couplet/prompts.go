package couplet

import (
	"fmt"
	"strings"

	"github.com/xiaoyuanzhu-com/couplet-server/knowledge"
)

// SystemPrompt establishes the persona shared by every couplet call
const SystemPrompt = `你是一位精通中国传统对联的大师，熟悉格律诗词与楹联规范。

## 对联三要素
1. **对仗**：上下联字数相等，词性相对，结构一致（名词对名词、动词对动词、数量对数量）。
2. **平仄**：上下联对应位置平仄相反，上联末字为仄声，下联末字为平声。
3. **意境**：上下联主题呼应、意象协调，合起来构成完整的意境。

回答使用简体中文，简洁准确。`

const generationRules = `## 要求
- 只输出下联本身，不要输出"下联："之类的标签、引号、解释或标点。
- 下联字数必须与上联完全相同。
- 严格遵守对仗与平仄，意境与上联呼应。`

const evaluationRubric = `## 评分标准（总分 100）
- 对仗（duizhang_score，满分 40）：字数相等、词性相对、结构一致。
- 平仄（pingze_score，满分 30）：对应位置平仄相反，上仄下平。
- 意境（content_score，满分 30）：主题呼应、意象协调、立意高远。
- score 为三项之和。

## 输出格式
只输出一个 JSON 对象，不要使用 Markdown 代码块，不要输出任何其他内容。
detail 中如需分点说明，请写在同一行内。示例：

{"score": 95, "duizhang_score": 38, "pingze_score": 28, "content_score": 29, "detail": "对仗工整，平仄基本合律，意境开阔，与上联呼应。"}`

// GenerationPrompt asks for a lower line matching upText. Retrieved pairs
// are offered as style references only.
func GenerationPrompt(upText string, examples []knowledge.Match) string {
	var b strings.Builder

	b.WriteString("请为下面的上联对出下联。\n\n")
	fmt.Fprintf(&b, "上联：%s\n", upText)
	fmt.Fprintf(&b, "字数：%d\n\n", len([]rune(upText)))

	if len(examples) > 0 {
		b.WriteString("## 风格参考\n")
		b.WriteString("以下是与上联相近的经典对联，仅供参考风格与对仗手法，请勿照抄：\n")
		for i, m := range examples {
			fmt.Fprintf(&b, "%d. 上联：%s　下联：%s\n", i+1, m.Entry.Upper, m.Entry.Lower)
		}
		b.WriteString("\n")
	}

	b.WriteString(generationRules)
	return b.String()
}

// EvaluationPrompt asks for a JSON score of a complete couplet
func EvaluationPrompt(upText, downText string) string {
	var b strings.Builder

	b.WriteString("请从对仗、平仄、意境三个方面评价下面这副对联。\n\n")
	fmt.Fprintf(&b, "上联：%s\n", upText)
	fmt.Fprintf(&b, "下联：%s\n\n", downText)
	b.WriteString(evaluationRubric)

	return b.String()
}

// ExplanationPrompt answers a free-form question, optionally about a couplet
func ExplanationPrompt(question, upText, downText string) string {
	var b strings.Builder

	if upText != "" || downText != "" {
		b.WriteString("## 对联\n")
		if upText != "" {
			fmt.Fprintf(&b, "上联：%s\n", upText)
		}
		if downText != "" {
			fmt.Fprintf(&b, "下联：%s\n", downText)
		}
		b.WriteString("\n")
	}

	b.WriteString("## 问题\n")
	b.WriteString(question)
	b.WriteString("\n\n请结合对联知识作答，必要时举例说明用字、对仗与平仄。")

	return b.String()
}
