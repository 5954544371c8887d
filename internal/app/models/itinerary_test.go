package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItinerary_DestinationID(t *testing.T) {
	tests := []struct {
		name string
		it   Itinerary
		want string
	}{
		{"destinationName wins", Itinerary{DestinationName: "Paris", Destination: "France"}, "Paris"},
		{"falls back to destination", Itinerary{Destination: " Rome "}, "Rome"},
		{"blank name ignored", Itinerary{DestinationName: "   ", Destination: "Tokyo"}, "Tokyo"},
		{"none", Itinerary{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.it.DestinationID())
		})
	}
}

func TestItinerary_Validate(t *testing.T) {
	day := []DayPlan{{Day: 1}}

	tests := []struct {
		name    string
		it      *Itinerary
		field   string
		wantErr bool
	}{
		{"valid with destinationName", &Itinerary{DestinationName: "Paris", Days: day}, "", false},
		{"valid with legacy destination", &Itinerary{Destination: "Paris", Days: day}, "", false},
		{"missing destination", &Itinerary{Days: day}, "destinationName", true},
		{"missing days", &Itinerary{DestinationName: "Paris"}, "days", true},
		{"nil", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.it.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrShapeInvalid))
			if tt.field != "" {
				var shapeErr *ShapeError
				require.True(t, errors.As(err, &shapeErr))
				assert.Equal(t, tt.field, shapeErr.Field)
			}
		})
	}
}

func TestItinerary_DecodeIgnoresUnknownFields(t *testing.T) {
	raw := `{"destinationName": "Lisbon", "weather": "sunny", "destinationCoords": {"lat": 38.72, "lon": -9.14}, "days": [{"day": 1, "activities": [{"time": "Evening", "description": "Fado"}]}]}`

	var it Itinerary
	require.NoError(t, json.Unmarshal([]byte(raw), &it))
	require.NoError(t, it.Validate())
	require.NotNil(t, it.DestinationCoords)
	assert.InDelta(t, -9.14, it.DestinationCoords.Lon, 1e-9)
	assert.Equal(t, "Fado", it.Days[0].Activities[0].Description)
}
