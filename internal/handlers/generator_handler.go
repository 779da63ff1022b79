package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"learningfun/internal/generator"
	"learningfun/internal/validation"
)

// GeneratorHandler serves question generation, image text extraction and
// worksheet building for parents and teachers.
type GeneratorHandler struct {
	generator generator.Generator
	extractor generator.Extractor
	builder   *generator.Builder
	log       *zap.Logger
}

func NewGeneratorHandler(gen generator.Generator, extractor generator.Extractor, builder *generator.Builder, log *zap.Logger) *GeneratorHandler {
	return &GeneratorHandler{generator: gen, extractor: extractor, builder: builder, log: log.Named("generator")}
}

// Generate returns a question set for the request.
func (h *GeneratorHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generator.Request
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	out, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type extractResponse struct {
	Text string `json:"text"`
}

// ExtractText reads the multipart "image" field and returns its text.
func (h *GeneratorHandler) ExtractText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, generator.MaxImageBytes+1<<16)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondWithServiceError(w, h.log, validation.ValidationError{Field: "image", Message: "image is larger than 8 MB"})
			return
		}
		respondWithServiceError(w, h.log, validation.ValidationError{Field: "image", Message: "attach an image in the image field"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, "failed to read upload", "", err)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}

	text, err := h.extractor.Extract(r.Context(), image, mimeType)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{Text: text})
}

// BuildWorksheet turns extracted text into an exercise.
func (h *GeneratorHandler) BuildWorksheet(w http.ResponseWriter, r *http.Request) {
	var req generator.BuildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	sheet, err := h.builder.Build(req)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

// Activities lists the activity templates.
func (h *GeneratorHandler) Activities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, generator.Activities())
}

// RenderActivity fills one activity template for a grade.
func (h *GeneratorHandler) RenderActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if err := validation.ValidateGrade("grade", req.Grade); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	activity, err := generator.RenderActivity(r.PathValue("id"), req.Grade, req.Customization)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}
