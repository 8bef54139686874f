package handlers

import "net/http"

// The model list is fixed: clients only ever see the OpenAI-style alias, the
// real model is chosen by configuration.
const (
	modelAlias   = "whisper-1"
	modelCreated = 1677532382
	modelOwner   = "mlx-whisper"
)

type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

func ListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelList{
		Object: "list",
		Data: []Model{{
			ID:      modelAlias,
			Object:  "model",
			Created: modelCreated,
			OwnedBy: modelOwner,
		}},
	})
}
