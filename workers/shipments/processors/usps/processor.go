package usps

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"parcel-mileage-service/workers/shipments/models"
)

type Config struct {
	BaseURI   string
	UserID    string
	UserAgent string
	Timeout   time.Duration
}

// TrackingProcessor reads shipment history from the USPS TrackV2 API.
type TrackingProcessor struct {
	logger *zap.Logger
	config Config
}

func NewTrackingProcessor(logger *zap.Logger, cfg Config) *TrackingProcessor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &TrackingProcessor{logger: logger, config: cfg}
}

func (p *TrackingProcessor) Track(ctx context.Context, trackingNumber string) (*models.TrackingRecord, error) {
	u, err := p.requestURL(trackingNumber)
	if err != nil {
		return nil, err
	}

	options := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	}
	if p.config.UserAgent != "" {
		options = append(options, colly.UserAgent(p.config.UserAgent))
	}
	c := colly.NewCollector(options...)
	c.SetRequestTimeout(p.config.Timeout)

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(u); err != nil {
		return nil, fmt.Errorf("usps request failed: %w", err)
	}

	return p.parse(trackingNumber, body)
}

func (p *TrackingProcessor) requestURL(trackingNumber string) (string, error) {
	var xmlBuf bytes.Buffer
	xmlBuf.WriteString(`<TrackFieldRequest USERID="`)
	if err := xml.EscapeText(&xmlBuf, []byte(p.config.UserID)); err != nil {
		return "", err
	}
	xmlBuf.WriteString(`"><TrackID ID="`)
	if err := xml.EscapeText(&xmlBuf, []byte(strings.TrimSpace(trackingNumber))); err != nil {
		return "", err
	}
	xmlBuf.WriteString(`"></TrackID></TrackFieldRequest>`)

	u, err := url.Parse(p.config.BaseURI)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("API", "TrackV2")
	q.Set("XML", xmlBuf.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *TrackingProcessor) parse(trackingNumber string, body []byte) (*models.TrackingRecord, error) {
	var root struct {
		XMLName     xml.Name
		Number      string `xml:"Number"`
		Description string `xml:"Description"`
	}
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	// A bare <Error> document means the request itself was rejected.
	if root.XMLName.Local == "Error" {
		return nil, fmt.Errorf("usps api error %s: %s", root.Number, strings.TrimSpace(root.Description))
	}

	var resp TrackResponse
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.TrackInfo) == 0 {
		return nil, errors.New("usps response has no TrackInfo")
	}

	record := resp.TrackInfo[0].toModel(trackingNumber)
	p.logger.Debug("Tracking details received",
		zap.String("tracking_number", trackingNumber),
		zap.Int("events", len(record.Details)),
		zap.Bool("has_summary", record.Summary != nil),
	)
	return record, nil
}
