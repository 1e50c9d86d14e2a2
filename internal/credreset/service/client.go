package service

import (
	"context"
	"strings"

	"github.com/mssola/useragent"

	"idmcore/internal/credreset/models"
	"idmcore/internal/platform/privacy"
	"idmcore/pkg/requestcontext"
)

// clientInfo records who started a reset without keeping the full address.
func clientInfo(ctx context.Context) models.ClientInfo {
	info := models.ClientInfo{IPPrefix: privacy.AnonymizeIP(requestcontext.ClientIP(ctx))}
	raw := requestcontext.UserAgent(ctx)
	if raw == "" {
		return info
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	info.Browser = strings.TrimSpace(browser)
	info.OS = strings.TrimSpace(ua.OS())
	info.Mobile = ua.Mobile()
	info.Bot = ua.Bot()
	return info
}
