package handlers

import (
	"errors"
	"net/http"

	"civiceye/database"
	"civiceye/models"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// Login authenticates an authority and returns a JWT.
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required"})
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
			return
		}
		log.Errorf("Login failed for %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Login failed"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Register creates a new authority account.
func (h *Handlers) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid registration request"})
		return
	}

	authority, err := h.auth.CreateAuthority(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, database.ErrAuthorityExists) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "An authority with this email already exists"})
			return
		}
		log.Errorf("Failed to register authority %s: %v", req.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Registration failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "authority": authority})
}
