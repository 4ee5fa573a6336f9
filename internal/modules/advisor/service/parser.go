package service

import (
	"regexp"
	"strconv"
	"strings"

	"quant_trader/internal/models"

	"github.com/bytedance/sonic"
)

// ParseStatus — насколько удалось разобрать ответ советника.
type ParseStatus string

const (
	Parsed          ParseStatus = "parsed"
	PartiallyParsed ParseStatus = "partially_parsed"
	Unparseable     ParseStatus = "unparseable"
)

// ParseResult — размеченный результат разбора. Никогда не ошибка:
// Unparseable несёт нейтральное мнение.
type ParseResult struct {
	Status  ParseStatus
	Opinion models.AdvisorOpinion
}

var (
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
	fencedRe     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

	scoreRe    = regexp.MustCompile(`"?score"?\s*[:=]\s*([0-9]+(?:\.[0-9]+)?)`)
	recRe      = regexp.MustCompile(`"?recommendation"?\s*[:=]\s*"?(buy|hold|sell)"?`)
	confRe     = regexp.MustCompile(`"?confidence"?\s*[:=]\s*([0-9]+(?:\.[0-9]+)?)`)
	chgRe      = regexp.MustCompile(`"?predicted_change"?\s*[:=]\s*(-?[0-9]+(?:\.[0-9]+)?)`)
	reasonsRe  = regexp.MustCompile(`"?reasons"?\s*[:=]\s*\[(.*?)\]`)
	reasonItem = regexp.MustCompile(`"([^"]+)"`)
)

// ParseOpinion — многоуровневый разбор «почти-JSON» ответа модели.
// Уровни: срезать chain-of-thought, вытащить fenced-блок, чистый JSON,
// regex по отдельным полям. Последний рубеж — нейтральное мнение.
func ParseOpinion(raw string) ParseResult {
	text := strings.TrimSpace(thinkBlockRe.ReplaceAllString(raw, ""))
	if text == "" {
		return ParseResult{Status: Unparseable, Opinion: models.NeutralOpinion()}
	}

	// fenced-блок имеет приоритет: модели любят заворачивать JSON в ```
	candidate := text
	if m := fencedRe.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	if op, ok := tryJSON(candidate); ok {
		return ParseResult{Status: Parsed, Opinion: op}
	}

	// иногда JSON вкраплён в прозу — пробуем вырезать по первой скобке
	if i, j := strings.Index(candidate, "{"), strings.LastIndex(candidate, "}"); i >= 0 && j > i {
		if op, ok := tryJSON(candidate[i : j+1]); ok {
			return ParseResult{Status: Parsed, Opinion: op}
		}
	}

	if op, ok := tryRegex(text); ok {
		return ParseResult{Status: PartiallyParsed, Opinion: op}
	}

	return ParseResult{Status: Unparseable, Opinion: models.NeutralOpinion()}
}

func tryJSON(s string) (models.AdvisorOpinion, bool) {
	var op models.AdvisorOpinion
	if err := sonic.Unmarshal([]byte(s), &op); err != nil {
		return models.AdvisorOpinion{}, false
	}
	if op.Score <= 0 && op.Recommendation == "" {
		return models.AdvisorOpinion{}, false
	}
	normalize(&op)
	return op, true
}

// tryRegex — поштучное извлечение полей из текста. Частичный успех
// считается успехом: отсутствующие поля заполняются нейтрально.
func tryRegex(s string) (models.AdvisorOpinion, bool) {
	op := models.NeutralOpinion()
	found := false

	if m := scoreRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			op.Score = v
			found = true
		}
	}
	if m := recRe.FindStringSubmatch(s); m != nil {
		op.Recommendation = strings.ToLower(m[1])
		found = true
	}
	if m := confRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			op.Confidence = v
			found = true
		}
	}
	if m := chgRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			op.PredictedChange = v
		}
	}
	if m := reasonsRe.FindStringSubmatch(s); m != nil {
		for _, item := range reasonItem.FindAllStringSubmatch(m[1], -1) {
			op.Reasons = append(op.Reasons, item[1])
		}
	}

	if !found {
		return models.AdvisorOpinion{}, false
	}
	normalize(&op)
	return op, true
}

func normalize(op *models.AdvisorOpinion) {
	op.Recommendation = strings.ToLower(strings.TrimSpace(op.Recommendation))
	switch op.Recommendation {
	case "buy", "hold", "sell":
	default:
		op.Recommendation = "hold"
	}
	if op.Score < 0 {
		op.Score = 0
	}
	if op.Score > 100 {
		op.Score = 100
	}
	if op.Confidence < 0 {
		op.Confidence = 0
	}
	if op.Confidence > 1 {
		op.Confidence = 1
	}
}
