package export

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"

	"github.com/nevindra/medcopy"
)

var sample = []medcopy.Record{
	{Label: "Asthma", Outcome: medcopy.Success("## What is \"Asthma\"?\nA chronic condition, often mild.", medcopy.Usage{})},
	{Label: "Gout", Outcome: medcopy.Failure(medcopy.KindQuotaExceeded, "OpenAI API quota exceeded")},
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample); err != nil {
		t.Fatal(err)
	}
	want := `"Condition","Generated Copy","Status","Error"` + "\n" +
		`"Asthma","## What is ""Asthma""?` + "\n" + `A chronic condition, often mild.","success",""` + "\n" +
		`"Gout","","error","OpenAI API quota exceeded"`
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV =\n%s\nwant\n%s", got, want)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	r := csv.NewReader(bytes.NewReader(CSV(sample)))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		Header,
		{"Asthma", sample[0].Outcome.Content, "success", ""},
		{"Gout", "", "error", "OpenAI API quota exceeded"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("round trip = %q, want %q", rows, want)
	}
}

func TestCSVHeaderOnly(t *testing.T) {
	got := string(CSV(nil))
	if got != `"Condition","Generated Copy","Status","Error"` {
		t.Errorf("CSV(nil) = %q", got)
	}
}

func TestCSVEveryFieldQuoted(t *testing.T) {
	out := string(CSV([]medcopy.Record{{Label: "plain", Outcome: medcopy.Success("text", medcopy.Usage{})}}))
	line := strings.Split(out, "\n")[1]
	if line != `"plain","text","success",""` {
		t.Errorf("row = %q", line)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("csv"); got != "medical-copy-results.csv" {
		t.Errorf("Filename(csv) = %q", got)
	}
	if got := Filename(".xlsx"); got != "medical-copy-results.xlsx" {
		t.Errorf("Filename(.xlsx) = %q", got)
	}
}
