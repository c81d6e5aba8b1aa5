package useragent

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Parser wraps the ua-parser database for launcher request telemetry.
// We only care about a coarse platform picture: which OS the launcher
// build runs on and whether the request looks like a real client at all.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// DeviceInfo is the parsed platform information of a launcher request
type DeviceInfo struct {
	DeviceType string // desktop, mobile, bot, unknown
	Browser    string // agent family reported by the client
	OS         string // Windows, Linux, Mac OS X, ...
	Raw        string
}

var (
	globalParser *Parser
	once         sync.Once
)

// NewParser creates a parser from a ua-parser regexes file
func NewParser(regexFilePath string, log *zap.Logger) (*Parser, error) {
	regexBytes, err := os.ReadFile(regexFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read regexes file: %w", err)
	}

	parser, err := uaparser.NewFromBytes(regexBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}

	log.Info("User-Agent parser initialized", zap.String("regexes_file", regexFilePath))

	return &Parser{
		parser: parser,
		log:    log,
	}, nil
}

// InitGlobalParser initializes the global parser instance
func InitGlobalParser(regexFilePath string, log *zap.Logger) error {
	var err error
	once.Do(func() {
		globalParser, err = NewParser(regexFilePath, log)
	})
	return err
}

// GetGlobalParser returns the singleton parser, nil if never initialized
func GetGlobalParser() *Parser {
	return globalParser
}

// ParseUserAgent parses a User-Agent string into coarse platform info
func (p *Parser) ParseUserAgent(userAgent string) *DeviceInfo {
	if userAgent == "" {
		return &DeviceInfo{DeviceType: "unknown", Browser: "unknown", OS: "unknown"}
	}

	client := p.parser.Parse(userAgent)

	info := &DeviceInfo{
		Browser: orUnknown(client.UserAgent.Family),
		OS:      orUnknown(client.Os.Family),
		Raw:     userAgent,
	}
	info.DeviceType = classify(client, userAgent)

	return info
}

func classify(client *uaparser.Client, userAgent string) string {
	lowered := strings.ToLower(userAgent)
	for _, marker := range []string{"bot", "crawler", "spider", "scraper", "curl", "wget"} {
		if strings.Contains(lowered, marker) {
			return "bot"
		}
	}

	switch client.Os.Family {
	case "Windows", "Mac OS X", "Linux", "Ubuntu", "Chrome OS":
		return "desktop"
	case "Android", "iOS", "Windows Phone":
		return "mobile"
	}

	return "unknown"
}

func orUnknown(value string) string {
	if value == "" || value == "Other" {
		return "unknown"
	}
	return value
}
