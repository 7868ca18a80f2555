package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/xiaoyuanzhu-com/couplet-server/models"
	"github.com/xiaoyuanzhu-com/couplet-server/utils"
)

// ErrMissingScore is returned when the payload parses but carries no total score
var ErrMissingScore = errors.New(`missing "score" field`)

// detailFieldRe captures the detail string value up to the quote that closes
// it: one followed by another key or by the end of the object.
var detailFieldRe = regexp.MustCompile(`(?s)("detail"\s*:\s*")(.*?)("\s*(?:,\s*"[A-Za-z_]+"\s*:|\}\s*$))`)

// scoreValue accepts 95, 95.0 or "95"; fractions round to the nearest integer
type scoreValue struct {
	value   int
	present bool
}

func (s *scoreValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		var str string
		if json.Unmarshal(b, &str) != nil {
			return err
		}
		parsed, perr := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if perr != nil {
			return fmt.Errorf("score %q is not a number", str)
		}
		f = parsed
	}
	s.value = int(math.Round(f))
	s.present = true
	return nil
}

type scoredPayload struct {
	Score         scoreValue `json:"score"`
	DuizhangScore scoreValue `json:"duizhang_score"`
	PingzeScore   scoreValue `json:"pingze_score"`
	ContentScore  scoreValue `json:"content_score"`
	Detail        string     `json:"detail"`
}

func (p scoredPayload) result() models.EvaluationResult {
	r := models.EvaluationResult{
		Score:         p.Score.value,
		DuizhangScore: p.DuizhangScore.value,
		PingzeScore:   p.PingzeScore.value,
		Detail:        p.Detail,
	}
	if p.ContentScore.present {
		v := p.ContentScore.value
		r.ContentScore = &v
	}
	return r
}

// ParseScoredJSON turns model output into an EvaluationResult. It never
// fails: output that cannot be parsed even after repair yields a zero-scored
// result whose Detail names the error and quotes the raw text.
func ParseScoredJSON(text string) models.EvaluationResult {
	r, err := DecodeScored(text)
	if err != nil {
		return FallbackEvaluation(text, err)
	}
	return r
}

// DecodeScored parses model output in three passes: as-is, with raw line
// breaks inside "detail" escaped, then through a general JSON repair.
func DecodeScored(text string) (models.EvaluationResult, error) {
	candidate, _ := utils.ExtractJSONObject(text)

	r, err := decodePayload(candidate)
	if err == nil {
		return r, nil
	}
	firstErr := err

	if escaped := EscapeDetailLineBreaks(candidate); escaped != candidate {
		if r, err = decodePayload(escaped); err == nil {
			return r, nil
		}
	}

	if repaired, rerr := jsonrepair.JSONRepair(candidate); rerr == nil {
		if r, err = decodePayload(repaired); err == nil {
			return r, nil
		}
	}

	return models.EvaluationResult{}, firstErr
}

// FallbackEvaluation is the result reported when model output is unusable
func FallbackEvaluation(raw string, err error) models.EvaluationResult {
	return models.EvaluationResult{
		Detail: fmt.Sprintf("评分结果解析失败：%v。原始输出：%s", err, raw),
	}
}

// EscapeDetailLineBreaks escapes raw CR, LF and tab characters inside the
// "detail" string value, the one place models emit multi-line prose.
func EscapeDetailLineBreaks(text string) string {
	return detailFieldRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := detailFieldRe.FindStringSubmatch(m)
		if sub == nil {
			return m
		}
		return sub[1] + escapeControl(sub[2]) + sub[3]
	})
}

var controlEscaper = strings.NewReplacer("\r", `\r`, "\n", `\n`, "\t", `\t`)

func escapeControl(s string) string {
	return controlEscaper.Replace(s)
}

func decodePayload(text string) (models.EvaluationResult, error) {
	var p scoredPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return models.EvaluationResult{}, err
	}
	if !p.Score.present {
		return models.EvaluationResult{}, ErrMissingScore
	}
	return p.result(), nil
}
