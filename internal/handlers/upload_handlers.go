package handlers

import (
	"encoding/json"
	"net/http"

	"realtime-chat/internal/storage"
	"realtime-chat/pkg/logger"
)

// maxUploadSize bounds one multipart upload.
const maxUploadSize = 25 << 20 // 25 MiB

// UploadHandlers fronts the file-storage collaborator. The response is the
// descriptor clients attach to file messages; the engine never sees bytes.
type UploadHandlers struct {
	store *storage.DiskStore
}

func NewUploadHandlers(store *storage.DiskStore) *UploadHandlers {
	return &UploadHandlers{store: store}
}

func (h *UploadHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large or malformed form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	info, err := h.store.Save(file, header)
	if err != nil {
		logger.Error("Error saving upload: %v", err)
		http.Error(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}
