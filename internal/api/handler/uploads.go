package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/ratinggame/internal/api/apierr"
	"github.com/mcoot/ratinggame/internal/imagehost/memory"
)

// ObjectGetter looks up hosted image bytes by key
type ObjectGetter interface {
	Get(key string) (memory.Object, bool)
}

// Uploads serves GET /uploads/{key} from an in-process image host
func Uploads(objects ObjectGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj, ok := objects.Get(mux.Vars(r)["key"])
		if !ok {
			apierr.WriteError(w, apierr.NewNotFoundError("Image not found"))
			return
		}

		w.Header().Set("Content-Type", obj.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(obj.Data)
	}
}
