package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/repository"
	"wellness-hub/internal/service"
)

const maxProfileImageSize = 5 << 20

func (h *Handler) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("x-auth-token")
		if token == "" {
			abortMsg(c, http.StatusUnauthorized, "No token, authorization denied")
			return
		}

		id, err := h.tokens.Parse(token)
		if err != nil {
			abortMsg(c, http.StatusUnauthorized, "Token is not valid")
			return
		}
		userID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			abortMsg(c, http.StatusUnauthorized, "Token is not valid")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func (h *Handler) register(c *gin.Context) {
	var (
		reg   domain.Registration
		image *domain.ProfileImage
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		reg.Username = c.PostForm("username")
		reg.Email = c.PostForm("email")
		reg.Password = c.PostForm("password")

		header, err := c.FormFile("profileImage")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			abortMsg(c, http.StatusBadRequest, "Invalid multipart body")
			return
		case header.Size > maxProfileImageSize:
			abortMsg(c, http.StatusBadRequest, "Profile image is too large")
			return
		default:
			f, err := header.Open()
			if err != nil {
				abortMsg(c, http.StatusInternalServerError, "Image upload failed")
				return
			}
			defer f.Close()
			image = &domain.ProfileImage{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        f,
			}
		}
	} else if err := c.ShouldBindJSON(&reg); err != nil {
		abortMsg(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Register(c.Request.Context(), reg, image)
	if err != nil {
		var validation *service.ValidationError
		switch {
		case errors.As(err, &validation):
			abortMsg(c, http.StatusBadRequest, validation.Message)
		case errors.Is(err, service.ErrUserAlreadyExists):
			abortMsg(c, http.StatusBadRequest, "User already exists")
		case errors.Is(err, service.ErrImageUpload):
			h.log.WithError(err).Warn("profile image upload")
			abortMsg(c, http.StatusInternalServerError, "Image upload failed")
		default:
			h.log.WithError(err).Error("register")
			abortMsg(c, http.StatusInternalServerError, "Server error during registration")
		}
		return
	}

	h.respondWithToken(c, user)
}

func (h *Handler) login(c *gin.Context) {
	var creds domain.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		abortMsg(c, http.StatusBadRequest, "Invalid Credentials")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			abortMsg(c, http.StatusBadRequest, "Invalid Credentials")
			return
		}
		h.log.WithError(err).Error("login")
		abortMsg(c, http.StatusInternalServerError, "Server error during login")
		return
	}

	h.respondWithToken(c, user)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), strconv.FormatInt(currentUserID(c), 10))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			abortMsg(c, http.StatusNotFound, "User not found")
			return
		}
		h.log.WithError(err).Error("load current user")
		abortMsg(c, http.StatusInternalServerError, "Server Error")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) respondWithToken(c *gin.Context, user *domain.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.log.WithError(err).Error("issue token")
		abortMsg(c, http.StatusInternalServerError, "Server error")
		return
	}

	c.JSON(http.StatusOK, domain.AuthResponse{
		Token:        token,
		Username:     user.Username,
		Email:        user.Email,
		ProfileImage: user.ProfileImage,
	})
}
