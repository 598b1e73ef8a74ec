package speech

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	speechmodel "github.com/zhouzirui/z-interview/backend/internal/model/speech"
)

// ErrNoCredentials 语音凭证缺失时返回，调用方据此关闭语音功能。
var ErrNoCredentials = errors.New("speech: missing app id or access token")

func resolveCredentials(cfg *speechmodel.Config) (appID, token string, err error) {
	if cfg == nil {
		return "", "", ErrNoCredentials
	}
	appID = strings.TrimSpace(cfg.AppID)
	token = strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = strings.TrimSpace(cfg.APIKey)
	}
	if appID == "" || token == "" {
		return "", "", ErrNoCredentials
	}
	return appID, token, nil
}

// authHeader builds the openspeech v3 handshake headers. connectID defaults to a fresh uuid.
func authHeader(cfg *speechmodel.Config, resourceID, connectID string) (http.Header, error) {
	appID, token, err := resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}
	if connectID == "" {
		connectID = uuid.NewString()
	}
	h := http.Header{}
	h.Set("X-Api-App-Key", appID)
	h.Set("X-Api-Access-Key", token)
	h.Set("X-Api-Resource-Id", resourceID)
	h.Set("X-Api-Connect-Id", connectID)
	return h, nil
}
