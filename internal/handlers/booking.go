package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/auth"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/services"
)

type BookingHandler struct {
	service *services.BookingService
}

func NewBookingHandler(service *services.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

func writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusNotFound)
	case errors.Is(err, services.ErrUnknownGateway):
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
	default:
		log.Printf("Booking creation failed: %v", err)
		http.Error(w, `{"error":"failed to create booking"}`, http.StatusInternalServerError)
	}
}

func callerID(r *http.Request) (string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return claims.Sub, true
}

func (h *BookingHandler) CreateItemBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var in services.CreateItemBookingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	booking, ref, err := h.service.CreateItemBooking(r.Context(), userID, in)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"booking": booking,
		"order":   ref,
	})
}

func (h *BookingHandler) CreateHotelBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var in services.CreateHotelBookingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	booking, ref, err := h.service.CreateHotelBooking(r.Context(), userID, in)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"booking": booking,
		"order":   ref,
	})
}

func (h *BookingHandler) CreateSessionBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var in services.CreateSessionBookingInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	booking, ref, err := h.service.CreateSessionBooking(r.Context(), userID, in)
	if err != nil {
		writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"booking": booking,
		"order":   ref,
	})
}
