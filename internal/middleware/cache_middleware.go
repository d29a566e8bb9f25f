package middleware

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ajuia-m/hw05-final/internal/auth"
	"github.com/ajuia-m/hw05-final/internal/cache"
	"github.com/ajuia-m/hw05-final/internal/metrics"
)

// IndexPagePrefix — пространство ключей кэша главной страницы.
const IndexPagePrefix = "index_page"

// pageRecorder пропускает ответ клиенту и одновременно копит тело.
type pageRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (p *pageRecorder) WriteHeader(code int) {
	if p.status == 0 {
		p.status = code
	}
	p.ResponseWriter.WriteHeader(code)
}

func (p *pageRecorder) Write(b []byte) (int, error) {
	if p.status == 0 {
		p.status = http.StatusOK
	}
	p.body.Write(b)
	return p.ResponseWriter.Write(b)
}

// CacheKey строит ключ страницы. Строка запроса в ключ не входит, поэтому
// в пределах ttl любая страница пагинации получает один и тот же ответ.
func CacheKey(prefix string, r *http.Request) string {
	viewer := "anon"
	if u := auth.GetUserFromContext(r.Context()); u != nil {
		viewer = strconv.FormatInt(u.ID, 10)
	}
	return prefix + ":" + r.URL.Path + ":" + viewer
}

// CachePage кэширует успешные GET-ответы на ttl. Записи не сбрасываются при
// изменении данных, только по истечении ttl или через Cache.Clear.
func CachePage(c cache.Cache, ttl time.Duration, prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := CacheKey(prefix, r)
			entry, ok, err := c.Get(r.Context(), key)
			if err != nil {
				log.Warnf("Page cache lookup failed for %s: %v", key, err)
			}
			if ok {
				metrics.CacheHit(prefix)
				if entry.ContentType != "" {
					w.Header().Set("Content-Type", entry.ContentType)
				}
				w.Write(entry.Body)
				return
			}
			metrics.CacheMiss(prefix)

			rec := &pageRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status != http.StatusOK {
				return
			}
			entry = cache.Entry{ContentType: rec.Header().Get("Content-Type"), Body: rec.body.Bytes()}
			if err := c.Set(r.Context(), key, entry, ttl); err != nil {
				log.Warnf("Page cache store failed for %s: %v", key, err)
			}
		})
	}
}
