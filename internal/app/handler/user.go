package handler

import (
	"errors"
	"net/http"

	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/logger"
	"bidmarket/internal/app/model"
	"bidmarket/internal/app/session"
	"bidmarket/internal/app/storage"
)

type UserHandler struct {
	session session.Creator
	users   storage.UserRepository
}

func NewUserHandler(users storage.UserRepository, sm session.Creator) *UserHandler {
	return &UserHandler{
		session: sm,
		users:   users,
	}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.Get(r.Context(), "Handler.User.Register")

	in := struct {
		Username string `json:"login" validate:"required,min=1,max=32,alphanum"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}{}

	if err := readBody(r, &in); err != nil {
		WriteError(w, err, http.StatusBadRequest)
		return
	}

	if !validateData(w, in) {
		return
	}

	u := &model.User{
		Name:     in.Username,
		Password: in.Password,
		Role:     model.RoleUser,
	}

	u, err := h.users.Create(r.Context(), u)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			log.Debug().Err(err).Send()
			WriteError(w, err, http.StatusConflict)
			return
		}
		if errors.Is(err, apperr.ErrInvalidInput) {
			log.Debug().Err(err).Send()
			WriteError(w, err, http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	token, err := h.session.Create(r.Context(), u)
	if err != nil {
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	out := struct {
		Token string `json:"token"`
	}{token}

	w.Header().Add("Authorization", "Bearer "+token)

	WriteResponse(w, out, http.StatusOK)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.Get(r.Context(), "Handler.User.Login")

	in := struct {
		Username string `json:"login" validate:"required,min=1,max=32,alphanum"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}{}

	if err := readBody(r, &in); err != nil {
		WriteError(w, err, http.StatusBadRequest)
		return
	}

	if !validateData(w, in) {
		return
	}

	u, err := h.users.ReadByNameAndPassword(r.Context(), in.Username, in.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			WriteError(w, apperr.ErrUnauthorized, http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	token, err := h.session.Create(r.Context(), u)
	if err != nil {
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	out := struct {
		Token string `json:"token"`
	}{token}

	w.Header().Add("Authorization", "Bearer "+token)

	WriteResponse(w, out, http.StatusOK)
}

// Balance reports the authenticated user's wallet balance.
func (h *UserHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.User.Balance")

	u, err := ReadContextUser(ctx)
	if err != nil {
		l.Debug().Err(err).Msg("Unauthorized")
		WriteError(w, err, http.StatusUnauthorized)
		return
	}

	// Re-read so the balance reflects settlements since login.
	u, err = h.users.Read(ctx, u.ID)
	if err != nil {
		l.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	out := struct {
		Balance string `json:"balance"`
	}{u.Balance.String()}

	WriteResponse(w, out, http.StatusOK)
}
