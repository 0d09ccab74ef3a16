// Copyright (C) 2026 Covegate Labs (eng@covegate.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_FrenchAccentIsDecisive(t *testing.T) {
	assert.Equal(t, French, Detect("Ma carte est bloquée"))
	assert.Equal(t, French, Detect("problème"))
}

func TestDetect_TwoMarkersWithoutAccents(t *testing.T) {
	// No accented characters, two marker words.
	assert.Equal(t, French, Detect("bonjour, comment fermer mon compte"))
}

func TestDetect_SingleMarkerIsNotEnough(t *testing.T) {
	// "carte" alone also appears in English sentences ("carte blanche").
	assert.Equal(t, English, Detect("I was given carte blanche on this"))
}

func TestDetect_English(t *testing.T) {
	assert.Equal(t, English, Detect("My card was declined at the store"))
	assert.Equal(t, English, Detect("What is the dispute process?"))
}

func TestDetect_EmptyDefaultsToEnglish(t *testing.T) {
	assert.Equal(t, English, Detect(""))
	assert.Equal(t, English, Detect("   "))
}

func TestDetect_CaseInsensitive(t *testing.T) {
	assert.Equal(t, French, Detect("BONJOUR MERCI"))
}
