package api

import (
	"net/http"

	"github.com/go-chi/render"

	errx "github.com/Chative-commerce/server/internal/core/error"
)

const (
	PartText       = "text"
	PartFile       = "file"
	PartValidation = "validation"

	menuRetrievalKey = "menu_image"
)

// Part is one element of the webhook reply, in send order.
type Part struct {
	PartID       int          `json:"part_id"`
	Type         string       `json:"type"`
	TextContent  string       `json:"text_content,omitempty"`
	HumanHandoff bool         `json:"human_handoff"`
	SendMenu     bool         `json:"send_menu"`
	FileDetails  *FileDetails `json:"file_details,omitempty"`
}

type FileDetails struct {
	RetrievalKey  string `json:"retrieval_key"`
	FileType      string `json:"file_type"`
	Base64Content string `json:"base64_content"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Detail: detail})
}

// renderAppError maps err through errx so store details never leak.
func renderAppError(w http.ResponseWriter, r *http.Request, err error) {
	renderError(w, r, errx.StatusOf(err), errx.MessageOf(err))
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, http.StatusNotFound, "Requested resource not found")
}

func NotAllowed(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}
