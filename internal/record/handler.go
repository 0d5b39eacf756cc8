package handler

import (
	"encoding/json"
	"net/http"

	"cratetrack/internal/apperr"
	"cratetrack/internal/record/model"
	"cratetrack/internal/record/service"
	usermodel "cratetrack/internal/user/model"
	"cratetrack/middleware"
	"cratetrack/pkg/logger"
	"cratetrack/pkg/validate"
)

type RecordHandler struct {
	Service *service.RecordService
}

func NewRecordHandler(service *service.RecordService) *RecordHandler {
	return &RecordHandler{Service: service}
}

func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Please enter a container number", http.StatusBadRequest)
		return
	}

	userID := middleware.UserIDFrom(r.Context())
	recordID, err := h.Service.Create(r.Context(), userID, req)
	if err != nil {
		logger.Sugar.Errorf("Handler: failed to create record: %v", err)
		http.Error(w, err.Error(), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(model.CreateRecordResponse{RecordID: recordID})
}

// GetRecords returns the caller's records; admins may request the unscoped
// view with ?all=true.
func (h *RecordHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ownerID := middleware.UserIDFrom(r.Context())
	if r.URL.Query().Get("all") == "true" {
		if middleware.RoleFrom(r.Context()) != usermodel.RoleAdmin {
			http.Error(w, "Forbidden: admin role required", http.StatusForbidden)
			return
		}
		ownerID = ""
	}

	records, err := h.Service.List(ownerID)
	if err != nil {
		logger.Sugar.Errorf("Handler: failed to list records: %v", err)
		http.Error(w, err.Error(), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *RecordHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	recordID := r.URL.Query().Get("recordId")
	if recordID == "" {
		http.Error(w, "Missing recordId parameter", http.StatusBadRequest)
		return
	}

	var req model.UpdateAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Please enter an address", http.StatusBadRequest)
		return
	}

	userID := middleware.UserIDFrom(r.Context())
	if err := h.Service.UpdateAddress(r.Context(), recordID, userID, req.Address); err != nil {
		logger.Sugar.Errorf("Handler: failed to update address for record %s: %v", recordID, err)
		http.Error(w, err.Error(), apperr.HTTPStatus(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Address updated successfully"))
}

func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	recordID := r.URL.Query().Get("recordId")
	if recordID == "" {
		http.Error(w, "Missing recordId parameter", http.StatusBadRequest)
		return
	}

	userID := middleware.UserIDFrom(r.Context())
	if err := h.Service.Remove(recordID, userID); err != nil {
		logger.Sugar.Errorf("Handler: failed to delete record %s: %v", recordID, err)
		http.Error(w, err.Error(), apperr.HTTPStatus(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Container removed successfully"))
}
