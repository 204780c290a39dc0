package config

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testStruct struct {
	Myint    int    `mapstructure:"this_int"`
	Mystring string `mapstructure:"mystring"`
	Flag     bool
	Sub      innerStruct `mapstructure:"sub"`
	Caps     map[string]string
}

type innerStruct struct {
	int1     int    `mapstructure:"int1"`
	password string `mapstructure:"password"`
}

var expected string = `this_int: 5
mystring: foobar
((Flag)): false
sub.int1: 3
sub.password: <REDACTED>
((Caps))[Alabama]: Montgomery
`

func TestBasic(t *testing.T) {
	var buf bytes.Buffer

	mylogger := func(msg string, args ...interface{}) {
		buf.WriteString(fmt.Sprintf(fmt.Sprintln(msg), args...))
	}

	testCfg := testStruct{
		Myint:    5,
		Mystring: "foobar",
		Sub: innerStruct{
			int1:     3,
			password: "secret",
		},
		// Can't do more than one entry as order is not guaranteed.
		Caps: map[string]string{
			"Alabama": "Montgomery",
		},
	}

	logStructWithLogger(reflect.ValueOf(testCfg), "", mylogger)

	assert.Equal(t, expected, buf.String())
}

func TestSliceOfStructs(t *testing.T) {
	var buf bytes.Buffer
	mylogger := func(msg string, args ...interface{}) {
		buf.WriteString(fmt.Sprintf(fmt.Sprintln(msg), args...))
	}

	cfg := struct {
		Slots []Slot `mapstructure:"slots"`
	}{
		Slots: []Slot{{Name: "s1", Sizes: [][]int{{300, 250}}}},
	}

	logStructWithLogger(reflect.ValueOf(cfg), "", mylogger)

	assert.Equal(t, "slots[0].name: s1\nslots[0].element_id: \nslots[0].sizes[0][0]: 300\nslots[0].sizes[0][1]: 250\n", buf.String())
}

func TestRedactsPostgresPassword(t *testing.T) {
	var buf bytes.Buffer
	mylogger := func(msg string, args ...interface{}) {
		buf.WriteString(fmt.Sprintf(fmt.Sprintln(msg), args...))
	}

	logStructWithLogger(reflect.ValueOf(PostgresAnalytics{Password: "hunter2"}), "", mylogger)

	assert.Contains(t, buf.String(), "password: <REDACTED>")
	assert.NotContains(t, buf.String(), "hunter2")
}
