package response

import (
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/mkrett/shuttle/internal/model"
)

type CommonResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *model.Error `json:"error"`
}

// FromDTO writes a success envelope around data.
func FromDTO(w http.ResponseWriter, status int, data any) error {
	return write(w, status, CommonResponse{Data: data})
}

// FromMessage writes a success envelope with a plain message payload.
func FromMessage(w http.ResponseWriter, status int, message string) error {
	return write(w, status, CommonResponse{Data: map[string]string{"message": message}})
}

// FromError writes an error envelope. Errors that carry a code keep it;
// anything else is reported under a generic code.
func FromError(w http.ResponseWriter, status int, err error) error {
	var modelErr model.Error
	switch e := err.(type) {
	case model.Error:
		modelErr = e
	case model.ErrorWithCode:
		modelErr = model.NewError(e.Code(), e.Error())
	default:
		modelErr = model.NewError("internal", err.Error())
	}

	return write(w, status, CommonResponse{Error: &modelErr})
}

func write(w http.ResponseWriter, status int, resp CommonResponse) error {
	data, err := sonic.Marshal(resp)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
