package httpx

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"saasgate/backend/internal/platform/apperr"
)

const maxBodyBytes = 1 << 20

// Decode fills the string fields of dst, a pointer to struct, from the request.
// JSON bodies are decoded directly; anything else is read as a form (body and
// query) keyed by the field's `form` tag.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return errors.New("httpx: Decode needs a pointer to struct")
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return apperr.New(apperr.KindValidation, "Request body is not valid JSON.")
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return apperr.New(apperr.KindValidation, "Request body is not a valid form.")
	}
	v := rv.Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" || f.Type.Kind() != reflect.String || !f.IsExported() {
			continue
		}
		if vals, ok := r.Form[name]; ok && len(vals) > 0 {
			v.Field(i).SetString(vals[0])
		}
	}
	return nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}
