package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/captcha"
)

// HeaderCaptchaToken carries the Turnstile response token from the browser widget.
const HeaderCaptchaToken = "X-Captcha-Token"

// CaptchaMiddleware rejects requests without a valid Turnstile token. It does nothing when
// the verifier is disabled.
func CaptchaMiddleware(verifier captcha.IVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifier.Enabled() {
			c.Next()
			return
		}

		token := c.GetHeader(HeaderCaptchaToken)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Captcha token required"})
			return
		}

		verified, err := verifier.Verify(c.Request.Context(), token, c.ClientIP())
		if err != nil {
			log.Printf("Error verifying Turnstile token: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Captcha verification unavailable"})
			return
		}
		if !verified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Captcha verification failed"})
			return
		}
		c.Next()
	}
}
