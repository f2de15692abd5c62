package api

import (
	"crypto/subtle"
	"log"
	"net/http"
)

// AuthMiddleware проверяет заголовок X-Api-Token. Сравнение постоянное по
// времени. Пустой настроенный токен запрещает доступ целиком.
func AuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, "Forbidden: API token is not configured", http.StatusForbidden)
				return
			}
			got := r.Header.Get("X-Api-Token")
			if got == "" {
				http.Error(w, "Unauthorized: Missing X-Api-Token header", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				log.Printf("AuthMiddleware: неверный API токен, запрос %s %s", r.Method, r.URL.Path)
				http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
