package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Adnan2k5/Booking-Web-sub000/internal/auth"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/models"
	"github.com/Adnan2k5/Booking-Web-sub000/internal/services"
)

type UserHandler struct {
	service   *services.UserService
	jwtSecret []byte
	jwtExpire time.Duration
}

func NewUserHandler(service *services.UserService, jwtSecret []byte, jwtExpire time.Duration) *UserHandler {
	return &UserHandler{service: service, jwtSecret: jwtSecret, jwtExpire: jwtExpire}
}

type registerRequest struct {
	FullName    string `json:"fullname"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PayPalEmail string `json:"paypalEmail"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, `{"error":"email and password are required"}`, http.StatusBadRequest)
		return
	}

	user := &models.User{
		FullName:    req.FullName,
		Email:       req.Email,
		PayPalEmail: req.PayPalEmail,
	}
	id, err := h.service.CreateUser(r.Context(), user, req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	token, err := auth.CreateAccessToken(h.jwtSecret, user.ID.Hex(), user.Role, h.jwtExpire)
	if err != nil {
		http.Error(w, `{"error":"failed to issue token"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token": token,
		"id":    user.ID.Hex(),
		"role":  string(user.Role),
	})
}
