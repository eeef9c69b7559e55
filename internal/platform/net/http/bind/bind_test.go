package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	perr "nemseer/internal/platform/errors"
	kit "nemseer/internal/platform/testkit"
)

type payload struct {
	Name   string   `json:"name" validate:"required,min=2"`
	Tables []string `json:"tables" validate:"required,min=1,dive,required"`
	Type   string   `json:"type,omitempty" validate:"omitempty,upper_only"`
}

func init() {
	_ = RegisterValidation("upper_only", "{0} must be upper case", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == strings.ToUpper(s)
	})
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestParseJSON(t *testing.T) {
	got, err := ParseJSON[payload](post(`{"name":"Al","tables":["PRICE"]}`))
	kit.MustNoErr(t, err)
	if got.Name != "Al" || len(got.Tables) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_Failures(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		code  perr.ErrorCode
		field string
		msg   string
	}{
		{"empty", "  ", perr.ErrorCodeJSON, "", "empty body"},
		{"broken", `{`, perr.ErrorCodeJSON, "", "invalid JSON"},
		{"unknown field", `{"name":"Al","tables":["X"],"zzz":1}`, perr.ErrorCodeJSON, "", "unknown field"},
		{"trailing", `{"name":"Al","tables":["X"]} {}`, perr.ErrorCodeJSON, "", "trailing"},
		{"short name", `{"name":"A","tables":["X"]}`, perr.ErrorCodeValidation, "name", "name must be at least 2"},
		{"no tables", `{"name":"Al","tables":[]}`, perr.ErrorCodeValidation, "tables", "tables must be at least 1"},
		{"custom tag", `{"name":"Al","tables":["X"],"type":"p5min"}`, perr.ErrorCodeValidation, "type", "type must be upper case"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseJSON[payload](post(tc.body))
			kit.MustErrCode(t, err, tc.code)
			kit.MustContain(t, err.Error(), tc.msg)
			if e, _ := perr.As(err); e.Field() != tc.field {
				t.Fatalf("field = %q, want %q", e.Field(), tc.field)
			}
		})
	}
}

func TestParseJSON_Options(t *testing.T) {
	_, err := ParseJSON[payload](post(""), JSONOptions{AllowEmptyBody: true})
	kit.MustNoErr(t, err)

	_, err = ParseJSON[payload](post(`{"name":"Al","tables":["X"]}`), JSONOptions{MaxBytes: 8})
	kit.MustErrCode(t, err, perr.ErrorCodeJSON)
	kit.MustContain(t, err.Error(), "larger than 8 bytes")

	_, err = ParseJSON[payload](post(`{"name":"Al","tables":["X"],"zzz":1}`), JSONOptions{AllowUnknown: true})
	kit.MustNoErr(t, err)
}

func TestStruct(t *testing.T) {
	kit.MustNoErr(t, Struct(payload{Name: "Al", Tables: []string{"X"}}))
	err := Struct(payload{Name: "Al"})
	kit.MustErrCode(t, err, perr.ErrorCodeValidation)
	if perr.WireFrom(err).Field != "tables" {
		t.Fatalf("field = %q", perr.WireFrom(err).Field)
	}
}
