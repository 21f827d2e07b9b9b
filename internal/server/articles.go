package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"articledesk/internal/events"
	"articledesk/internal/imagestore"
	"articledesk/internal/metrics"
	"articledesk/internal/model"
	"articledesk/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// sideEffectTimeout bounds cleanup that runs after the database commit.
const sideEffectTimeout = 5 * time.Second

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeArticle(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	article, err := s.store.Create(r.Context(), in)
	if err != nil {
		s.log(r).Error("Failed to create article", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Error creating article: "+err.Error())
		return
	}

	s.publish(r, events.ArticleCreated, article)
	writeJSON(w, http.StatusCreated, article)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.List(r.Context())
	if err != nil {
		s.log(r).Error("Failed to list articles", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Database error while listing articles: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	in, err := decodeArticle(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	updated, previous, err := s.store.Replace(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, fmt.Sprintf("Article with ID %d not found", id))
			return
		}
		s.log(r).Error("Failed to update article", zap.Int64("article_id", id), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Database error while updating article: "+err.Error())
		return
	}

	if stale := model.StaleImage(*previous, *updated); stale != "" {
		s.deleteImage(r, id, stale)
	}
	s.publish(r, events.ArticleUpdated, updated)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := articleID(r)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	removed, err := s.store.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, fmt.Sprintf("Article with ID %d not found", id))
			return
		}
		s.log(r).Error("Failed to delete article", zap.Int64("article_id", id), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Database error while deleting article: "+err.Error())
		return
	}

	// removed was read inside the deleting transaction.
	if image := removed.Image(); image != "" {
		s.deleteImage(r, id, image)
	}
	s.publish(r, events.ArticleDeleted, removed)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			writeDetail(w, http.StatusUnprocessableEntity, "field required: image")
			return
		}
		s.log(r).Warn("Failed to read upload", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Error uploading image: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Error uploading image: "+err.Error())
		return
	}

	url, err := s.images.Upload(r.Context(), data)
	metrics.RecordImageOp("upload", err)
	if err != nil {
		s.log(r).Error("Failed to upload image", zap.Int("bytes", len(data)), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Error uploading image: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": url})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("link")
	if link == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "field required: link")
		return
	}

	res, err := s.scraper.Scrape(r.Context(), link)
	if err != nil {
		s.log(r).Warn("Failed to preview link", zap.String("link", link), zap.Error(err))
		writeDetail(w, http.StatusBadGateway, "Error previewing link: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.source.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Image not found")
			return
		}
		s.log(r).Error("Failed to read image", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Failed to retrieve image")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = w.Write(data)
}

// deleteImage removes an image that no article references any more.
// Failures leave an orphan behind and never fail the request.
func (s *Server) deleteImage(r *http.Request, id int64, url string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), sideEffectTimeout)
	defer cancel()

	err := s.images.Delete(ctx, url)
	metrics.RecordImageOp("delete", err)
	if err != nil {
		s.log(r).Warn("Failed to delete image",
			zap.Int64("article_id", id),
			zap.String("image_link", url),
			zap.Error(err))
	}
}

func (s *Server) publish(r *http.Request, t events.Type, a *model.Article) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), sideEffectTimeout)
	defer cancel()

	err := s.events.Publish(ctx, events.Event{
		Type:       t,
		ArticleID:  a.ID,
		ImageLink:  a.Image(),
		OccurredAt: time.Now().UTC(),
	})
	metrics.RecordEvent(string(t), err)
	if err != nil {
		s.log(r).Warn("Failed to publish event",
			zap.String("type", string(t)),
			zap.Int64("article_id", a.ID),
			zap.Error(err))
	}
}
