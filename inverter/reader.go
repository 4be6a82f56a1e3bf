package inverter

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CataIana/solismqtt/logger"
)

// pollTimeout bounds one status request against the inverter
const pollTimeout = 20 * time.Second

// TransientError marks a failure to fetch or decode a status record. The
// stick powers its network interface down overnight, so every poll failure
// is retryable and retry policy belongs to the caller.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("inverter unavailable (%s): %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Reader fetches and decodes status records from the inverter's WiFi
// stick. It performs no retries itself.
type Reader struct {
	statusURL  string
	monitorURL string
	username   string
	password   string
	decoder    Decoder
	client     *http.Client
}

// NewReader creates a reader for the stick at the given address
func NewReader(address, username, password string, decoder Decoder) *Reader {
	return &Reader{
		statusURL:  "http://" + address + "/inverter.cgi",
		monitorURL: "http://" + address + "/moniter.cgi",
		username:   username,
		password:   password,
		decoder:    decoder,
		client:     &http.Client{Timeout: pollTimeout},
	}
}

// Poll fetches one status record and decodes it into a Reading. All
// failures are returned as *TransientError.
func (r *Reader) Poll() (Reading, error) {
	fields, err := r.fetchRecord(r.statusURL)
	if err != nil {
		return Reading{}, &TransientError{Op: "poll", Err: err}
	}

	reading, err := r.decoder.Decode(fields)
	if err != nil {
		return Reading{}, &TransientError{Op: "decode", Err: err}
	}

	logger.Debug("inverter reading: serial=%s power=%dW today=%.3fkWh temp=%.1f°C",
		reading.SerialNumber, reading.PowerNow, reading.EnergyToday, reading.Temperature)
	return reading, nil
}

// fetchRecord performs the authenticated GET and splits the NUL-padded
// semicolon record into raw fields
func (r *Reader) fetchRecord(url string) ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(r.username, r.password)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// The stick pads the record with NUL bytes on both sides
	record := strings.Trim(string(body), "\x00")
	return strings.Split(record, ";"), nil
}
