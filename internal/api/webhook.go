package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Chative-commerce/server/internal/agent/model"
	"github.com/Chative-commerce/server/internal/orchestrator"
	logx "github.com/Chative-commerce/server/pkg/logger"
)

const maxMenuImageBytes = 10 << 20

// WebhookRequest is the inbound message as posted by the WhatsApp gateway.
type WebhookRequest struct {
	MessageUser       string   `json:"message_user"`
	MessageBase64     string   `json:"message_base64"`
	MimeType          string   `json:"mimetype"`
	TenantID          string   `json:"tenant_id" validate:"required"`
	UserPhone         string   `json:"user_phone" validate:"required"`
	WhatsAppMessageID string   `json:"whatsapp_message_id" validate:"required"`
	Latitude          *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude         *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

// Webhook handles POST /api/v1/ai.
func Webhook(opts Options, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logx.With("module", "api.webhook", "request_id", middleware.GetReqID(ctx))

		var req WebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("failed to decode request body")
			renderError(w, r, http.StatusUnprocessableEntity, "Invalid request body")
			return
		}
		if err := validate.Struct(req); err != nil {
			log.Error().Err(err).Msg("request validation failed")
			renderError(w, r, http.StatusUnprocessableEntity, validationDetail(err))
			return
		}
		log = log.With().
			Str("tenant_id", req.TenantID).
			Str("user_id", req.UserPhone).
			Str("message_id", req.WhatsAppMessageID).
			Logger()

		tenant, err := opts.Catalog.GetTenant(ctx, req.TenantID)
		if err != nil {
			log.Error().Err(err).Msg("tenant lookup failed")
			renderAppError(w, r, err)
			return
		}
		if tenant == nil || !tenant.Active {
			log.Warn().Msg("tenant not found or inactive")
			renderError(w, r, http.StatusNotFound,
				fmt.Sprintf("Cliente com o ID '%s' não foi encontrado ou está inativo.", req.TenantID))
			return
		}

		in := orchestrator.Request{
			UserID:      req.UserPhone,
			MessageID:   req.WhatsAppMessageID,
			Text:        req.MessageUser,
			TenantID:    req.TenantID,
			Personality: tenant.Personality,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
		}
		if req.MessageBase64 != "" && req.MimeType != "" {
			data, err := base64.StdEncoding.DecodeString(req.MessageBase64)
			if err != nil {
				log.Warn().Err(err).Msg("ignoring undecodable attachment")
			} else {
				in.File = data
				in.MimeType = req.MimeType
				log.Info().Str("mime_type", req.MimeType).Int("bytes", len(data)).Msg("media message received")
			}
		}

		resp, err := opts.Processor.ProcessMessage(ctx, in)
		if err != nil {
			log.Warn().Err(err).Msg("message processing interrupted")
			renderError(w, r, http.StatusGatewayTimeout, "Tempo de processamento esgotado.")
			return
		}

		parts := buildParts(ctx, opts, log, tenant.ID, resp)
		if !resp.Duplicate {
			recordInteraction(ctx, opts, log, req, resp.ResponseText)
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, parts)
	}
}

func buildParts(ctx context.Context, opts Options, log zerolog.Logger, tenantID string, resp *model.AIResponse) []Part {
	parts := make([]Part, 0, 3)
	if resp.ResponseText != "" {
		parts = append(parts, Part{Type: PartText, TextContent: resp.ResponseText})
	}
	if resp.SendMenu {
		if fd := menuImage(ctx, opts, log, tenantID); fd != nil {
			parts = append(parts, Part{Type: PartFile, SendMenu: true, FileDetails: fd})
		}
	}
	if resp.HumanHandoff {
		parts = append(parts, Part{Type: PartValidation, HumanHandoff: true})
	}
	for i := range parts {
		parts[i].PartID = i + 1
	}
	if len(parts) == 0 {
		log.Warn().Msg("no response part produced")
	}
	return parts
}

// menuImage downloads the newest menu picture. Failures drop the part.
func menuImage(ctx context.Context, opts Options, log zerolog.Logger, tenantID string) *FileDetails {
	img, err := opts.Catalog.GetLatestMenuImage(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Msg("menu image lookup failed")
		return nil
	}
	if img == nil || img.URL == "" {
		log.Warn().Msg("send_menu set but tenant has no menu image")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		log.Error().Err(err).Str("url", img.URL).Msg("bad menu image url")
		return nil
	}
	res, err := opts.HTTPClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", img.URL).Msg("menu image download failed")
		return nil
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		log.Error().Int("status", res.StatusCode).Str("url", img.URL).Msg("menu image download failed")
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxMenuImageBytes))
	if err != nil {
		log.Error().Err(err).Str("url", img.URL).Msg("reading menu image failed")
		return nil
	}

	fileType := strings.TrimSpace(strings.Split(res.Header.Get("Content-Type"), ";")[0])
	if !strings.HasPrefix(fileType, "image/") {
		fileType = "image/jpeg"
	}
	return &FileDetails{
		RetrievalKey:  menuRetrievalKey,
		FileType:      fileType,
		Base64Content: base64.StdEncoding.EncodeToString(body),
	}
}

func recordInteraction(ctx context.Context, opts Options, log zerolog.Logger, req WebhookRequest, reply string) {
	if opts.Interactions == nil {
		return
	}
	// The reply reflects committed state, so the record outlives a gone client.
	err := opts.Interactions.Append(context.WithoutCancel(ctx), model.Interaction{
		ID:        uuid.NewString(),
		MessageID: req.WhatsAppMessageID,
		UserID:    req.UserPhone,
		TenantID:  req.TenantID,
		UserText:  req.MessageUser,
		AIText:    reply,
		CreatedAt: opts.Now(),
	})
	switch {
	case err == nil:
	case errors.Is(err, model.ErrDuplicateMessage):
		log.Debug().Msg("interaction already recorded")
	default:
		log.Error().Err(err).Msg("recording interaction failed")
	}
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "Invalid request: " + strings.Join(fields, ", ")
}
