package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	userDto "runtoyou.app/runtoyou/internal/modules/user/dto"
	user "runtoyou.app/runtoyou/internal/modules/user/service"
	"runtoyou.app/runtoyou/pkg/response"
	"runtoyou.app/runtoyou/pkg/validator"
)

type AuthHandler struct {
	authService user.AuthService
	frontendURL string
}

func NewAuthHandler(authService user.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, frontendURL: frontendURL}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input userDto.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Message(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	res, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input userDto.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Message(c, http.StatusBadRequest, user.ErrInvalidCredentials.Message)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	u, err := h.authService.GoogleLogin()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, u)
}

// GoogleCallback finishes the OAuth flow and hands the tokens to the frontend in the query string.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.Message(c, http.StatusBadRequest, "Code not found")
		return
	}

	res, err := h.authService.GoogleCallback(c.Request.Context(), c.Query("state"), code)
	if err != nil {
		q := url.Values{"error": {err.Error()}}
		c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/login?"+q.Encode())
		return
	}

	q := url.Values{"token": {res.Token}}
	if res.SearchToken != "" {
		q.Set("searchToken", res.SearchToken)
	}
	c.Redirect(http.StatusTemporaryRedirect, h.frontendURL+"/auth/google/callback?"+q.Encode())
}
