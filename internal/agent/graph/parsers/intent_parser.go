package parsers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/Chative-commerce/server/internal/agent/model"
	errx "github.com/Chative-commerce/server/internal/core/error"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

const (
	recDelim = "##"
	tupDelim = "<||>"
	endDelim = "<|COMPLETE|>"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024
	maxRecords    = 50
	maxTupleLen   = 4 * 1024
	maxErrSnippet = 200
)

// ErrNoTasks is returned when the model output contains no usable task tuple.
var ErrNoTasks = errors.New("intent output has no task")

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}

	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	inner := s[1 : len(s)-1]
	// details may legitimately contain the tuple delimiter
	parts := strings.SplitN(inner, tupDelim, 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	return &rawTuple{Type: strings.ToLower(strings.TrimSpace(parts[0])), Parts: parts}, nil
}

// ParseIntentAnalysis reads the delimiter format
//
//	(task<||>adicionar_item<||>2 pizzas)##(urgency<||>false)<|COMPLETE|>
//
// Bad records are skipped and recorded in Metadata["parsing_errors"]. An output
// without any task yields ErrNoTasks.
func ParseIntentAnalysis(content string) (resp *model.IntentAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("intent parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			resp = nil
		}
	}()

	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	content = stripFences(content)
	if idx := strings.Index(content, endDelim); idx >= 0 {
		content = content[:idx]
	}

	resp = &model.IntentAnalysis{Tasks: []model.Task{}, Metadata: map[string]any{}}
	addErr := func(msg string) {
		v, _ := resp.Metadata["parsing_errors"].([]string)
		resp.Metadata["parsing_errors"] = append(v, msg)
	}

	processed := 0
	for _, rec := range strings.Split(content, recDelim) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		if processed >= maxRecords {
			resp.Metadata["records_capped"] = true
			break
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			addErr("bad_record: " + safeSnippet(rec))
			continue
		}

		switch rt.Type {
		case "task":
			kind := model.NormalizeTaskType(rt.Parts[1])
			if kind == "" || !utf8.ValidString(string(kind)) {
				addErr("task: invalid type")
				continue
			}
			details := ""
			if len(rt.Parts) == 3 {
				details = strings.TrimSpace(rt.Parts[2])
			}
			resp.Tasks = append(resp.Tasks, model.Task{Type: kind, Details: details})
		case "urgency":
			switch strings.ToLower(strings.TrimSpace(rt.Parts[1])) {
			case "true", "1", "sim", "yes":
				resp.Urgency = true
			case "false", "0", "não", "nao", "no":
				resp.Urgency = false
			default:
				addErr("urgency: invalid value")
			}
		default:
			addErr("unknown tuple type")
		}
	}

	if len(resp.Tasks) == 0 {
		return resp, ErrNoTasks
	}
	return resp, nil
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
