/*
Copyright 2025 The f1-nexus Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package core

import (
	"fmt"
	"strings"
)

// TireCompound is an enumeration of the tire compounds available for a race.
// Slicks are ordered from the hardest (C0) to the softest (C5).
type TireCompound int

// enumeration of TireCompound
const (
	C0 TireCompound = iota
	C1
	C2
	C3
	C4
	C5
	Intermediate
	Wet
)

// AllCompounds lists every compound in declaration order.
var AllCompounds = []TireCompound{C0, C1, C2, C3, C4, C5, Intermediate, Wet}

// TireCharacteristics holds the nominal physical constants of a compound.
type TireCharacteristics struct {
	// PaceFactor is the grip multiplier of a fresh set on a dry track at the optimal
	// temperature. The softest slick is the reference at 1.0.
	PaceFactor float64
	// TypicalLife is the nominal life of a set in laps at track severity 1.0.
	TypicalLife int
	// OptimalTempMin and OptimalTempMax bound the tire operating window in degrees Celsius.
	OptimalTempMin float64
	OptimalTempMax float64
}

var tireCharacteristics = map[TireCompound]TireCharacteristics{
	C0:           {PaceFactor: 0.980, TypicalLife: 40, OptimalTempMin: 85, OptimalTempMax: 105},
	C1:           {PaceFactor: 0.984, TypicalLife: 35, OptimalTempMin: 90, OptimalTempMax: 110},
	C2:           {PaceFactor: 0.988, TypicalLife: 30, OptimalTempMin: 90, OptimalTempMax: 110},
	C3:           {PaceFactor: 0.992, TypicalLife: 25, OptimalTempMin: 92, OptimalTempMax: 112},
	C4:           {PaceFactor: 0.996, TypicalLife: 20, OptimalTempMin: 95, OptimalTempMax: 115},
	C5:           {PaceFactor: 1.000, TypicalLife: 15, OptimalTempMin: 95, OptimalTempMax: 115},
	Intermediate: {PaceFactor: 0.955, TypicalLife: 30, OptimalTempMin: 70, OptimalTempMax: 90},
	Wet:          {PaceFactor: 0.930, TypicalLife: 35, OptimalTempMin: 60, OptimalTempMax: 80},
}

var compoundNames = map[TireCompound]string{
	C0:           "C0",
	C1:           "C1",
	C2:           "C2",
	C3:           "C3",
	C4:           "C4",
	C5:           "C5",
	Intermediate: "intermediate",
	Wet:          "wet",
}

// Characteristics returns the nominal constants of the compound.
// Unknown compounds return the zero value.
func (c TireCompound) Characteristics() TireCharacteristics {
	return tireCharacteristics[c]
}

// IsValid reports whether c is one of the declared compounds.
func (c TireCompound) IsValid() bool {
	_, ok := tireCharacteristics[c]
	return ok
}

// IsDry reports whether the compound is a slick.
func (c TireCompound) IsDry() bool {
	return c >= C0 && c <= C5
}

// IsWet reports whether the compound is an Intermediate or a full Wet.
func (c TireCompound) IsWet() bool {
	return c == Intermediate || c == Wet
}

// Softer reports whether c is a softer slick than other.
// Comparisons involving wet-weather compounds are always false.
func (c TireCompound) Softer(other TireCompound) bool {
	return c.IsDry() && other.IsDry() && c > other
}

func (c TireCompound) String() string {
	if name, ok := compoundNames[c]; ok {
		return name
	}
	return fmt.Sprintf("TireCompound(%d)", int(c))
}

// MarshalText encodes the compound by name.
func (c TireCompound) MarshalText() ([]byte, error) {
	name, ok := compoundNames[c]
	if !ok {
		return nil, fmt.Errorf("unknown tire compound: %d", int(c))
	}
	return []byte(name), nil
}

// UnmarshalText decodes a compound name. Matching is case-insensitive and accepts
// "inter" as an alias for the intermediate.
func (c *TireCompound) UnmarshalText(text []byte) error {
	compound, err := ParseTireCompound(string(text))
	if err != nil {
		return err
	}
	*c = compound
	return nil
}

// ParseTireCompound returns the compound with the given name.
func ParseTireCompound(name string) (TireCompound, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "inter" {
		return Intermediate, nil
	}
	for compound, known := range compoundNames {
		if strings.ToLower(known) == normalized {
			return compound, nil
		}
	}
	return 0, fmt.Errorf("unknown tire compound: %q", name)
}
