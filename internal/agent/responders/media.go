package responders

import (
	"context"
	"errors"
	"mime"
	"strings"
	"time"

	"github.com/Chative-commerce/server/internal/agent/graph/prompts"
	"github.com/Chative-commerce/server/internal/agent/llm"
	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/core/retry"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

const (
	MsgUnsupportedFile = "Desculpe, não consigo processar este tipo de arquivo."
	MsgEmptySummary    = "Não consegui entender o conteúdo do arquivo. Pode tentar de novo?"
	MsgFileError       = "Ocorreu um erro ao analisar o arquivo. Por favor, tente novamente."
)

// MediaKind is the coarse category of an attachment.
type MediaKind string

const (
	MediaAudio       MediaKind = "audio"
	MediaImage       MediaKind = "image"
	MediaVideo       MediaKind = "video"
	MediaUnsupported MediaKind = ""
)

// MediaCategory classifies a MIME type or a WhatsApp message kind.
func MediaCategory(mimeType string) MediaKind {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(m, "audio/"), m == "audiomessage":
		return MediaAudio
	case strings.HasPrefix(m, "image/"), m == "imagemessage":
		return MediaImage
	case strings.HasPrefix(m, "video/"), m == "videomessage":
		return MediaVideo
	default:
		return MediaUnsupported
	}
}

// normalizeMIME turns WhatsApp kinds into real MIME types and drops parameters.
func normalizeMIME(mimeType string, kind MediaKind) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "audiomessage":
		return "audio/ogg"
	case "imagemessage":
		return "image/jpeg"
	case "videomessage":
		return "video/mp4"
	}
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		return base
	}
	return string(kind) + "/*"
}

// MediaSummarizer converts an attachment into text before intent analysis.
type MediaSummarizer struct {
	Analyzer llm.MediaAnalyzer
	Timeout  time.Duration
	Policy   retry.Policy
}

// Apply summarises step.File in place. It sets step.Halt when the run must
// end with the draft already set.
func (m *MediaSummarizer) Apply(ctx context.Context, step *model.StepContext) {
	if len(step.File) == 0 {
		return
	}
	log := logx.With("session_id", step.SessionID, "mime_type", step.MimeType)

	kind := MediaCategory(step.MimeType)
	if kind == MediaUnsupported {
		log.Info().Msg("unsupported attachment")
		step.Draft.ResponseText = MsgUnsupportedFile
		step.Halt = true
		return
	}

	instruction, err := prompts.RenderMediaSystem(ctx, kind == MediaAudio)
	if err == nil {
		var summary string
		summary, err = m.analyze(ctx, instruction, step.File, normalizeMIME(step.MimeType, kind))
		if err == nil {
			summary = strings.TrimSpace(summary)
			if summary == "" {
				m.fail(step, MsgEmptySummary)
				return
			}
			step.Text = summary
			step.Draft.FileSummary = &model.FileSummary{SummaryText: summary, FileType: string(kind)}
			return
		}
	}
	log.Warn().Err(err).Msg("attachment analysis failed")
	m.fail(step, MsgFileError)
}

func (m *MediaSummarizer) fail(step *model.StepContext, text string) {
	step.Draft.ResponseText = text
	if strings.TrimSpace(step.Text) == "" {
		step.Halt = true
	}
}

func (m *MediaSummarizer) analyze(ctx context.Context, instruction string, data []byte, mimeType string) (string, error) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var out string
	err := retry.Do(ctx, "llm.media", m.Policy, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		s, err := m.Analyzer.Analyze(callCtx, instruction, data, mimeType)
		if errors.Is(err, llm.ErrMediaUnsupported) {
			return retry.Permanent(err)
		}
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}
