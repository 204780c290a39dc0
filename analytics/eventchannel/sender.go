package eventchannel

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/golang/glog"
)

type Sender = func(payload []byte) error

func NewHttpSender(client *http.Client, endpoint string) Sender {
	return func(payload []byte) error {
		req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			glog.Error(err)
			return err
		}

		req.Header.Set("Content-Type", "application/x-ndjson")
		req.Header.Set("Content-Encoding", "gzip")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			glog.Errorf("[eventchannel] Wrong code received %d from %s", resp.StatusCode, endpoint)
			return fmt.Errorf("wrong code received %d", resp.StatusCode)
		}
		return nil
	}
}
