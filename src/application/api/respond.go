package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"mediagrab-be-server/src/lib/cerr"
	"mediagrab-be-server/src/lib/env"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeInternalError logs the full error server side; the client only
// sees detail outside production.
func writeInternalError(w http.ResponseWriter, environment env.Environment, err error) {
	cerr.Log(err)

	message := "An internal error occurred"
	if environment == env.Development {
		message = err.Error()
	}

	writeError(w, http.StatusInternalServerError, message)
}

// writeStreamFailure is for errors that happen after the response has
// started, when no status code can be sent anymore.
func writeStreamFailure(err error) {
	cerr.Log(cerr.Wrap(err).Error("Failed while streaming file to client"))
}

// streamFile sends a temp file to the client and removes it afterwards.
func streamFile(w http.ResponseWriter, filePath string, fileName string, contentType string) error {
	defer os.Remove(filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return cerr.Field("file_path", filePath).
			Wrap(err).Error("Failed to open downloaded file for streaming")
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return cerr.Field("file_path", filePath).
			Wrap(err).Error("Failed to stat downloaded file")
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(stat.Size(), 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))

	_, err = io.Copy(w, file)
	return err
}
