package models_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zharif-1135/Toba-Water-Monitor/internal/api/models"
	"github.com/Zharif-1135/Toba-Water-Monitor/internal/waterquality"
)

func TestTimestamp_JSON(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	ts := models.Timestamp(time.Date(2026, time.January, 1, 7, 30, 0, 0, wib))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2026-01-01T00:30:00Z"`, string(data))

	var back models.Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Time().Equal(ts.Time()))

	assert.Error(t, json.Unmarshal([]byte(`"01/01/2026"`), &back))
	assert.Error(t, json.Unmarshal([]byte(`42`), &back))
	require.NoError(t, json.Unmarshal([]byte(`null`), &back))
}

func TestTimestampPtr(t *testing.T) {
	assert.Nil(t, models.TimestampPtr(time.Time{}))

	now := time.Now()
	ts := models.TimestampPtr(now)
	require.NotNil(t, ts)
	assert.True(t, ts.Time().Equal(now))
}

func TestNewListResponse(t *testing.T) {
	data, err := json.Marshal(models.NewListResponse[string](nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"count":0}`, string(data))

	list := models.NewListResponse([]string{"KLHK11", "Parapat"})
	assert.Equal(t, 2, list.Count)
}

func TestForecastRequest_Validate(t *testing.T) {
	valid := waterquality.PollutionRecord{Date: waterquality.NewDate(2025, time.March, 1), IndeksPencemaran: 1.2}

	tests := []struct {
		name   string
		req    models.ForecastRequest
		fields []string
	}{
		{"stored history", models.ForecastRequest{Location: "KLHK11"}, nil},
		{"ad hoc history", models.ForecastRequest{Location: "Parapat", History: []waterquality.PollutionRecord{valid}}, nil},
		{"blank location", models.ForecastRequest{Location: "  "}, []string{"location"}},
		{
			name: "bad records",
			req: models.ForecastRequest{Location: "Balige", History: []waterquality.PollutionRecord{
				valid,
				{IndeksPencemaran: -1},
			}},
			fields: []string{"history[1].date", "history[1].IndeksPencemaran"},
		},
		{
			name:   "too long",
			req:    models.ForecastRequest{Location: "Balige", History: make([]waterquality.PollutionRecord, models.MaxHistoryRecords+1)},
			fields: []string{"history"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.req.Validate()
			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.fields, fields, strings.Join(fields, ","))
		})
	}
}

func TestHealthStatus_Worse(t *testing.T) {
	ok, degraded, fail := models.HealthStatusOK, models.HealthStatusDegraded, models.HealthStatusFail

	assert.Equal(t, ok, ok.Worse(ok))
	assert.Equal(t, degraded, ok.Worse(degraded))
	assert.Equal(t, degraded, degraded.Worse(ok))
	assert.Equal(t, fail, degraded.Worse(fail))
	assert.Equal(t, fail, fail.Worse(degraded))
}
