package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"articledesk/internal/model"

	"github.com/gorilla/mux"
)

type detail struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, detail{Detail: msg})
}

// requestError is a client mistake with the status it maps to.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func unprocessable(format string, args ...interface{}) error {
	return &requestError{status: http.StatusUnprocessableEntity, msg: fmt.Sprintf(format, args...)}
}

// writeRequestError answers with the status carried by err.
func writeRequestError(w http.ResponseWriter, err error) {
	var re *requestError
	if errors.As(err, &re) {
		writeDetail(w, re.status, re.msg)
		return
	}
	writeDetail(w, http.StatusBadRequest, err.Error())
}

// decodeArticle reads and shape-checks an article payload.
func decodeArticle(r *http.Request) (model.ArticleInput, error) {
	var in model.ArticleInput
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&in)

	var typeErr *json.UnmarshalTypeError
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return in, unprocessable("field required: body")
	case errors.As(err, &typeErr):
		return in, unprocessable("invalid value for %s: expected %s", typeErr.Field, typeErr.Type)
	default:
		return in, &requestError{status: http.StatusBadRequest, msg: "malformed JSON body: " + err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return in, &requestError{status: http.StatusBadRequest, msg: "malformed JSON body: unexpected data after the article object"}
	}

	if err := in.Validate(); err != nil {
		return in, unprocessable("%s", err.Error())
	}
	return in, nil
}

func articleID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["article_id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, unprocessable("article_id must be an integer, got %q", raw)
	}
	return id, nil
}
