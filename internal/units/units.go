// Package units recognises SI unit strings such as "mV", "ms^2" or
// "mV^2/Hz" and computes scaling factors between prefixed forms of the
// same unit.
package units

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidUnit is returned when a unit is not SI or two units are not
// scalable versions of each other.
var ErrInvalidUnit = errors.New("invalid unit")

const (
	prefixes = `(Y|Z|E|P|T|G|M|k|h|da|d|c|m|u|n|p|f|a|z|y)`
	bases    = `(mol|cd|Hz|Pa|Wb|lm|lx|Bq|Gy|Sv|kat|Ohm|dB|rad|m|g|s|A|K|N|J|W|C|V|F|S|T|H|l|L|%)`
	power    = `(\^[+-]?[1-9]\d*)`
	atomic   = prefixes + `?` + bases + power + `?`
)

var (
	atomicRe   = regexp.MustCompile(`^` + atomic + `$`)
	compoundRe = regexp.MustCompile(`^(` + atomic + `(\*|/))+` + atomic + `$`)
	pupRe      = regexp.MustCompile(`^` + prefixes + bases + power + `$`)
	upRe       = regexp.MustCompile(`^` + bases + power + `$`)
	puRe       = regexp.MustCompile(`^` + prefixes + bases + `$`)
	partRe     = regexp.MustCompile(`^` + atomic)
)

// PrefixFactors maps each SI prefix to its factor.
var PrefixFactors = map[string]float64{
	"y": 1e-24, "z": 1e-21, "a": 1e-18, "f": 1e-15, "p": 1e-12, "n": 1e-9,
	"u": 1e-6, "m": 1e-3, "c": 1e-2, "d": 1e-1, "da": 1e1, "h": 1e2,
	"k": 1e3, "M": 1e6, "G": 1e9, "T": 1e12, "P": 1e15, "E": 1e18,
	"Z": 1e21, "Y": 1e24,
}

// Sanitize removes blanks and spells micro as "u".
func Sanitize(unit string) string {
	r := strings.NewReplacer(" ", "", "mu", "u", "µ", "u", "μ", "u")
	return r.Replace(unit)
}

// IsSI reports whether unit is an atomic or compound SI unit.
func IsSI(unit string) bool {
	return unit != "" && (IsAtomic(unit) || IsCompound(unit))
}

// IsAtomic reports whether unit is a single, optionally prefixed and
// raised, SI unit.
func IsAtomic(unit string) bool { return atomicRe.MatchString(unit) }

// IsCompound reports whether unit combines atomic units with '*' or '/'.
func IsCompound(unit string) bool { return compoundRe.MatchString(unit) }

// Split separates an atomic unit into prefix, base unit and power. The
// power is 1 when absent. Strings that do not parse come back whole as
// the base.
func Split(unit string) (prefix, base string, pow int) {
	if m := pupRe.FindStringSubmatch(unit); m != nil {
		return m[1], m[2], parsePower(m[3])
	}
	if m := upRe.FindStringSubmatch(unit); m != nil {
		return "", m[1], parsePower(m[2])
	}
	if m := puRe.FindStringSubmatch(unit); m != nil {
		return m[1], m[2], 1
	}
	return "", unit, 1
}

func parsePower(s string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "^"))
	if err != nil {
		return 1
	}
	return n
}

// SplitCompound returns the atomic parts of a compound unit. Parts after
// a '/' have their power negated, so "mV^2/Hz" gives "mV^2" and "Hz^-1".
func SplitCompound(unit string) ([]string, error) {
	if !IsSI(unit) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
	var parts []string
	rest, sep := unit, byte('*')
	for {
		part := partRe.FindString(rest)
		if sep == '/' {
			part = invert(part)
		}
		parts = append(parts, part)
		rest = rest[len(partRe.FindString(rest)):]
		if rest == "" {
			return parts, nil
		}
		sep, rest = rest[0], rest[1:]
	}
}

func invert(unit string) string {
	prefix, base, pow := Split(unit)
	return fmt.Sprintf("%s%s^%d", prefix, base, -pow)
}

// Scalable reports whether a and b are SI units differing at most in
// their prefix.
func Scalable(a, b string) bool {
	if !IsSI(a) || !IsSI(b) {
		return false
	}
	_, baseA, powA := Split(a)
	_, baseB, powB := Split(b)
	return baseA == baseB && powA == powB
}

// ScalableAll applies Scalable pairwise. Lists of different length are
// never scalable.
func ScalableAll(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Scalable(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Scaling returns the factor that converts a value in unit from into unit
// to, for example 1e-3 from "ms" to "s".
func Scaling(from, to string) (float64, error) {
	if !Scalable(from, to) {
		return 0, fmt.Errorf("%w: %q and %q are not scalable versions of the same SI unit", ErrInvalidUnit, from, to)
	}
	prefixFrom, _, pow := Split(from)
	prefixTo, _, _ := Split(to)
	if prefixFrom == prefixTo {
		return 1, nil
	}
	return math.Pow(factor(prefixFrom)/factor(prefixTo), float64(pow)), nil
}

func factor(prefix string) float64 {
	if f, ok := PrefixFactors[prefix]; ok {
		return f
	}
	return 1
}
