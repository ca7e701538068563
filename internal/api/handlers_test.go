package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fin-processor/backend/internal/models"
	"github.com/fin-processor/backend/internal/processor"
	"github.com/fin-processor/backend/internal/testutil"
)

func newTestServer(t *testing.T) (*echo.Echo, *testutil.MockStorage) {
	t.Helper()
	store := testutil.NewMockStorage(t.TempDir())
	e := echo.New()
	SetupMiddleware(e, MiddlewareConfig{BodyLimit: "16M"})
	RegisterRoutes(e, NewHandlers(&Dependencies{Store: store, Version: "test"}))
	return e, store
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if field != "" {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file here"))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func doUpload(t *testing.T, e *echo.Echo, field, name string, data []byte, accept string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, field, name, data)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set(echo.HeaderContentType, ct)
	if accept != "" {
		req.Header.Set(echo.HeaderAccept, accept)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) processor.UploadResponse {
	t.Helper()
	var resp processor.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleHealth(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp processor.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Contains(t, resp.Message, "test")
}

func TestHandleSheets(t *testing.T) {
	e, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sheets", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp processor.SheetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sheets, 3)
	assert.Equal(t, "balance_sheet", resp.Sheets[0].Key)
	assert.Equal(t, "Balance Sheet (CDKT)", resp.Sheets[0].Name)
	assert.Equal(t, "Cân đối kế toán", resp.Sheets[0].Display)
}

func TestHandleUpload_Success(t *testing.T) {
	e, store := newTestServer(t)
	wb := testutil.WorkbookBytes(t, testutil.BalanceSheetFixture())

	rec := doUpload(t, e, "file", "report.xlsx", wb, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON(t, rec)
	assert.Equal(t, "Successfully processed 1 sheets", resp.Message)
	assert.Equal(t, []string{"CDKT"}, resp.ProcessedSheets)
	assert.Empty(t, resp.Error)
	require.NotNil(t, resp.Data)
	assert.Equal(t, []string{"balance_sheet"}, resp.Data.Keys())

	// the stored copy is removed after processing
	assert.Equal(t, 0, store.GetFileCount())
	assert.Len(t, store.Deleted(), 1)
}

func TestHandleUpload_Msgpack(t *testing.T) {
	e, _ := newTestServer(t)
	wb := testutil.WorkbookBytes(t, testutil.BalanceSheetFixture())

	rec := doUpload(t, e, "file", "report.xlsx", wb, processor.MIMEApplicationMsgpack)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, processor.MIMEApplicationMsgpack, rec.Header().Get(echo.HeaderContentType))

	var resp processor.UploadResponse
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &resp))
	sheet, ok := resp.Data.Sheet("balance_sheet")
	require.True(t, ok)
	assert.Equal(t, models.NumberCell(1234567), sheet.Rows[0][1])
}

func TestHandleUpload_Failures(t *testing.T) {
	wb := testutil.WorkbookBytes(t, testutil.BalanceSheetFixture())
	other := testutil.WorkbookBytes(t, testutil.SheetFixture{Name: "Summary", Header: []any{"", "x"}, Rows: [][]any{{"a", 1}}})
	legacy := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 512)...)

	tests := []struct {
		name       string
		field      string
		filename   string
		data       []byte
		wantStatus int
		wantError  string
	}{
		{"missing file field", "", "", nil, http.StatusBadRequest, MsgNoFileProvided},
		{"wrong extension", "file", "report.csv", wb, http.StatusBadRequest, MsgInvalidFileType},
		{"no extension", "file", "report", wb, http.StatusBadRequest, MsgInvalidFileType},
		{"no known sheets", "file", "other.xlsx", other, http.StatusBadRequest, MsgNoValidSheets},
		{"not a workbook", "file", "fake.xlsx", []byte("hello"), http.StatusBadRequest, MsgNoValidSheets},
		{"legacy xls", "file", "old.xls", legacy, http.StatusUnprocessableEntity, MsgLegacyWorkbook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestServer(t)
			rec := doUpload(t, e, tt.field, tt.filename, tt.data, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeJSON(t, rec)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestHandleUpload_StoreFailure(t *testing.T) {
	e, store := newTestServer(t)
	store.FailSaves(errors.New("disk full"))

	rec := doUpload(t, e, "file", "report.xlsx", testutil.WorkbookBytes(t, testutil.BalanceSheetFixture()), "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgStoreFailed, decodeJSON(t, rec).Error)
}

func TestProcessorClientRoundTrip(t *testing.T) {
	e, _ := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()

	wb := testutil.WorkbookBytes(t, testutil.BalanceSheetFixture())

	for _, format := range []processor.Format{processor.FormatJSON, processor.FormatMsgpack} {
		t.Run(string(format), func(t *testing.T) {
			client := processor.NewClient(srv.URL, processor.WithFormat(format))

			require.NoError(t, client.Health(context.Background()))

			res, err := client.Upload(context.Background(), "report.xlsx", bytes.NewReader(wb))
			require.NoError(t, err)
			assert.Equal(t, []string{"CDKT"}, res.ProcessedSheets)
			assert.Equal(t, []string{"balance_sheet"}, res.Data.Keys())

			_, err = client.Upload(context.Background(), "report.txt", bytes.NewReader(wb))
			require.Error(t, err)
			assert.ErrorIs(t, err, processor.ErrServerRejected)
			assert.Equal(t, MsgInvalidFileType, err.Error())
		})
	}
}
