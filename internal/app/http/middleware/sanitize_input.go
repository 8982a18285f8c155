package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// credential fields are hashed or compared byte for byte and pass through as sent
var rawFields = map[string]bool{
	"password":     true,
	"old_password": true,
	"new_password": true,
}

// SanitizeAndCleanInputMiddleware strips markup from every string in a JSON body,
// including strings nested in objects and arrays. Credential fields are left alone.
func SanitizeAndCleanInputMiddleware() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
			return
		}
		if len(bytes.TrimSpace(buf)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(buf))
			c.Next()
			return
		}

		// numbers stay json.Number so amounts and phone numbers round-trip untouched
		dec := json.NewDecoder(bytes.NewReader(buf))
		dec.UseNumber()
		var body interface{}
		if err := dec.Decode(&body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
			return
		}

		newBody, _ := json.Marshal(sanitizeValue(policy, body))
		c.Request.Body = io.NopCloser(bytes.NewBuffer(newBody))
		c.Request.ContentLength = int64(len(newBody))

		c.Next()
	}
}

func sanitizeValue(policy *bluemonday.Policy, v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return policy.Sanitize(t)
	case map[string]interface{}:
		for k, inner := range t {
			if _, ok := inner.(string); ok && rawFields[k] {
				continue
			}
			t[k] = sanitizeValue(policy, inner)
		}
		return t
	case []interface{}:
		for i, inner := range t {
			t[i] = sanitizeValue(policy, inner)
		}
		return t
	default:
		return v
	}
}
