package processor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fin-processor/backend/internal/logging"
	"github.com/fin-processor/backend/internal/models"
)

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return NewClient(url, opts...)
}

func respondJSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func upload(t *testing.T, c *Client) (*UploadResult, error) {
	t.Helper()
	return c.Upload(context.Background(), "report.xlsx", strings.NewReader("PK fake workbook"))
}

func TestUpload_Success(t *testing.T) {
	var gotField, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Len(t, r.MultipartForm.File, 1)
		for field, headers := range r.MultipartForm.File {
			gotField = field
			gotName = headers[0].Filename
			f, _ := headers[0].Open()
			b, _ := io.ReadAll(f)
			gotBody = string(b)
		}

		respondJSON(http.StatusOK, `{
			"message": "Successfully processed 2 sheets",
			"processed_sheets": ["balance_sheet", "financial_ratios"],
			"data": {
				"balance_sheet": {"columns":["Chỉ tiêu","2024"],"data":[["Tiền",1234567]],"shape":[1,2]},
				"financial_ratios": {"columns":["Chỉ tiêu"],"data":[],"shape":[0,1]}
			}
		}`)(w, r)
	}))
	defer srv.Close()

	res, err := upload(t, newTestClient(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, "file", gotField)
	assert.Equal(t, "report.xlsx", gotName)
	assert.Equal(t, "PK fake workbook", gotBody)

	assert.Equal(t, "Successfully processed 2 sheets", res.Message)
	assert.Equal(t, []string{"balance_sheet", "financial_ratios"}, res.ProcessedSheets)
	assert.Equal(t, []string{"balance_sheet", "financial_ratios"}, res.Data.Keys())

	s, ok := res.Data.Sheet("balance_sheet")
	require.True(t, ok)
	assert.Equal(t, models.NumberCell(1234567), s.Rows[0][1])
}

func TestUpload_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"non-2xx with error", http.StatusBadRequest, `{"error":"No valid sheets found in the Excel file"}`, KindServerRejected, "No valid sheets found in the Excel file"},
		{"non-2xx without error", http.StatusInternalServerError, `{}`, KindServerRejected, GenericFailureMessage},
		{"non-2xx unparsable", http.StatusBadGateway, `<html>bad gateway</html>`, KindServerRejected, GenericFailureMessage},
		{"2xx missing data", http.StatusOK, `{"message":"ok"}`, KindServerRejected, GenericFailureMessage},
		{"2xx missing data with error", http.StatusOK, `{"error":"No file selected"}`, KindServerRejected, "No file selected"},
		{"2xx null data", http.StatusOK, `{"message":"ok","data":null}`, KindServerRejected, GenericFailureMessage},
		{"2xx ragged sheet", http.StatusOK, `{"data":{"a":{"columns":["x","y"],"data":[[1]]}}}`, KindServerRejected, MalformedResponseMessage},
		{"2xx data not object", http.StatusOK, `{"data":[1,2,3]}`, KindServerRejected, MalformedResponseMessage},
		{"2xx body not object", http.StatusOK, `[1,2]`, KindServerRejected, MalformedResponseMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(respondJSON(tt.status, tt.body))
			defer srv.Close()

			_, err := upload(t, newTestClient(srv.URL))
			require.Error(t, err)

			var upErr *UploadError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tt.kind, upErr.Kind)
			assert.Equal(t, tt.message, upErr.Message)
			assert.Equal(t, tt.status, upErr.StatusCode)
			assert.True(t, errors.Is(err, ErrServerRejected))
			assert.False(t, errors.Is(err, ErrTransportFailure))
		})
	}
}

func TestUpload_MalformedJSONIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(respondJSON(http.StatusOK, `{"data": {`))
	defer srv.Close()

	_, err := upload(t, newTestClient(srv.URL))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransportFailure))
	assert.Contains(t, err.Error(), "Connection failed:")
}

func TestUpload_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(respondJSON(http.StatusOK, `{}`))
	url := srv.URL
	srv.Close()

	_, err := upload(t, newTestClient(url))
	require.Error(t, err)

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, KindTransportFailure, upErr.Kind)
	assert.True(t, strings.HasPrefix(upErr.Message, "Connection failed: "))
	assert.Contains(t, upErr.Message, "Check if the processing service is running at "+url)
	assert.Equal(t, 0, upErr.StatusCode)
}

func TestUpload_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := upload(t, newTestClient(srv.URL, WithTimeout(50*time.Millisecond)))
	assert.True(t, errors.Is(err, ErrTransportFailure))
}

func TestUpload_Msgpack(t *testing.T) {
	sheet, err := models.NewSheetData([]string{"Chỉ tiêu", "2024"}, [][]models.Cell{
		{models.StringCell("ROE"), models.NumberCell(0.185)},
	})
	require.NoError(t, err)
	set := models.NewResultSet()
	set.Add("financial_ratios", sheet)
	set.Add("balance_sheet", &models.SheetData{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, MIMEApplicationMsgpack, r.Header.Get("Accept"))
		b, err := msgpack.Marshal(&UploadResponse{Message: "Successfully processed 2 sheets", Data: set})
		assert.NoError(t, err)
		w.Header().Set("Content-Type", MIMEApplicationMsgpack)
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	res, err := upload(t, newTestClient(srv.URL, WithFormat(FormatMsgpack)))
	require.NoError(t, err)
	assert.Equal(t, "Successfully processed 2 sheets", res.Message)
	assert.Equal(t, []string{"financial_ratios", "balance_sheet"}, res.Data.Keys())

	got, ok := res.Data.Sheet("financial_ratios")
	require.True(t, ok)
	assert.Equal(t, models.NumberCell(0.185), got.Rows[0][1])
}

func TestUpload_MsgpackMissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := msgpack.Marshal(map[string]string{"error": "Invalid file type. Please upload .xlsx or .xls files"})
		w.Header().Set("Content-Type", MIMEApplicationMsgpack)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write(b)
	}))
	defer srv.Close()

	_, err := upload(t, newTestClient(srv.URL, WithFormat(FormatMsgpack)))
	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "Invalid file type. Please upload .xlsx or .xls files", upErr.Message)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"no content", http.StatusNoContent, false},
		{"server error", http.StatusInternalServerError, true},
		{"not found", http.StatusNotFound, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/health", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := newTestClient(srv.URL).Health(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSheets(t *testing.T) {
	srv := httptest.NewServer(respondJSON(http.StatusOK,
		`{"sheets":[{"key":"balance_sheet","name":"Balance Sheet (CDKT)","display":"Cân đối kế toán"}]}`))
	defer srv.Close()

	sheets, err := newTestClient(srv.URL + "/").Sheets(context.Background())
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Balance Sheet (CDKT)", sheets[0].Name)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MsgPack")
	require.NoError(t, err)
	assert.Equal(t, FormatMsgpack, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
