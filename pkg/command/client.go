/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"errors"
	"fmt"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-nlx/pkg/config"
	"jinr.ru/greenlab/go-nlx/pkg/replay"
	"jinr.ru/greenlab/go-nlx/pkg/state"
)

// ApiClient talks to the status API of a running replay
type ApiClient struct {
	ApiPrefix string
}

func NewApiClient(cfg *config.ApiConfig) *ApiClient {
	return NewApiClientForPrefix(fmt.Sprintf("http://%s/api", cfg.Listen()))
}

func NewApiClientForPrefix(prefix string) *ApiClient {
	return &ApiClient{
		ApiPrefix: prefix,
	}
}

// ReplayStatus requests the status of the running replay
func (c *ApiClient) ReplayStatus() (*replay.Status, error) {
	r, err := req.Get(fmt.Sprintf("%s/replay/status", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	status := &replay.Status{}
	if err = r.ToJSON(status); err != nil {
		return nil, err
	}
	return status, nil
}

// Sessions requests the stored replay sessions
func (c *ApiClient) Sessions() ([]*state.Progress, error) {
	r, err := req.Get(fmt.Sprintf("%s/sessions", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != 200 {
		return nil, errors.New(r.Response().Status)
	}
	var sessions []*state.Progress
	if err = r.ToJSON(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
