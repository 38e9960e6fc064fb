package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// allowedSettings maps each user-editable key to its validator. The
// api_key entry is a fallback credential for both remote providers and
// is only consulted when the environment variables are unset.
var allowedSettings = map[string]func(string) error{
	"api_key":          anyValue,
	"transcribe_model": nonEmpty,
	"llm_model":        nonEmpty,
	"language":         nonEmpty,
	"chunk_size":       positiveInt,
	"system_device":    anyValue,
}

func registerSettingsRoutes(mux *http.ServeMux, settings SettingsStore, defaults map[string]string) {
	mux.HandleFunc("GET /api/settings", func(w http.ResponseWriter, r *http.Request) {
		merged := make(map[string]string, len(allowedSettings))
		for key := range allowedSettings {
			merged[key] = defaults[key]
			stored, err := settings.GetSetting(key)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("read setting %s: %v", key, err))
				return
			}
			if stored != "" {
				merged[key] = stored
			}
		}
		writeJSON(w, http.StatusOK, merged)
	})

	mux.HandleFunc("PUT /api/settings", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode body: %v", err))
			return
		}

		for key, value := range body {
			check, ok := allowedSettings[key]
			if !ok {
				writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown setting %q", key))
				return
			}
			if err := check(value); err != nil {
				writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
		}

		for key, value := range body {
			if err := settings.PutSetting(key, value); err != nil {
				writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("store setting %s: %v", key, err))
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func nonEmpty(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("value is empty")
	}
	return nil
}

func positiveInt(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func anyValue(string) error { return nil }
