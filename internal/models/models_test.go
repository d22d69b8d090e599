package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecodeFeatures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want FeatureSet
	}{
		{
			name: "full feature set",
			raw:  `{"text":true,"audio":true,"premium":false}`,
			want: FeatureSet{Text: true, Audio: true},
		},
		{
			name: "empty payload",
			raw:  "",
			want: FeatureSet{},
		},
		// некорректный payload безопаснее закрыть, чем открыть лишнее
		{
			name: "malformed json",
			raw:  `{"text":`,
			want: FeatureSet{},
		},
		{
			name: "wrong shape",
			raw:  `["text","audio"]`,
			want: FeatureSet{},
		},
		{
			name: "unknown keys ignored",
			raw:  `{"text":true,"video":true}`,
			want: FeatureSet{Text: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeFeatures(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubscriptionIsActive(t *testing.T) {
	var nilSub *Subscription
	assert.False(t, nilSub.IsActive())

	assert.True(t, (&Subscription{Status: StatusActive}).IsActive())
	assert.False(t, (&Subscription{Status: StatusInactive}).IsActive())
	// незнакомый статус провайдера трактуется как неактивный
	assert.False(t, (&Subscription{Status: "past_due"}).IsActive())
}

func TestTrialStateNilSafety(t *testing.T) {
	var state *TrialState
	assert.False(t, state.IsActive(time.Now()))
	assert.Equal(t, 0, state.HoursRemaining(time.Now()))
}

func TestEntitlementHasFeature(t *testing.T) {
	ent := &Entitlement{Features: FeatureSet{Text: true, Audio: true}}
	assert.True(t, ent.HasFeature("text"))
	assert.True(t, ent.HasFeature("audio"))
	assert.False(t, ent.HasFeature("premium"))
	assert.False(t, ent.HasFeature("video"))

	var nilEnt *Entitlement
	assert.False(t, nilEnt.HasFeature("text"))
}
