package escalation

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

type Tier struct {
	Above  int    `yaml:"above"`
	Points int    `yaml:"points"`
	Reason string `yaml:"reason"`
}

type Policy struct {
	Thresholds struct {
		Escalate int `yaml:"escalate"`
		High     int `yaml:"high"`
		Urgent   int `yaml:"urgent"`
	} `yaml:"thresholds"`

	AffectedTiers []Tier `yaml:"affected_tiers"`

	Critical struct {
		Categories []string `yaml:"categories"`
		Points     int      `yaml:"points"`
	} `yaml:"critical"`

	VolumeAnomaly struct {
		Multiplier float64 `yaml:"multiplier"`
		Points     int     `yaml:"points"`
	} `yaml:"volume_anomaly"`

	Remedy struct {
		NonePoints    int `yaml:"none_points"`
		LimitedPoints int `yaml:"limited_points"`
		LimitedBelow  int `yaml:"limited_below"`
	} `yaml:"remedy"`

	Concurrent struct {
		Above  int `yaml:"above"`
		Points int `yaml:"points"`
	} `yaml:"concurrent"`

	RapidOnset struct {
		MinIncidents   int     `yaml:"min_incidents"`
		RecentFraction float64 `yaml:"recent_fraction"`
		Share          float64 `yaml:"share"`
		Points         int     `yaml:"points"`
	} `yaml:"rapid_onset"`

	Teams       map[string]string       `yaml:"teams"`
	DefaultTeam string                  `yaml:"default_team"`
	SLA         map[Level]time.Duration `yaml:"sla"`
}

// DefaultPolicy returns the embedded policy. It panics only if the embedded file is broken.
func DefaultPolicy() Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded escalation policy: %v", err))
	}
	return p
}

func ParsePolicy(raw []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parse escalation policy: %w", err)
	}
	if err := p.validate(); err != nil {
		return Policy{}, err
	}
	p.normalize()
	return p, nil
}

// LoadPolicy reads path, falling back to the embedded policy when path is empty or invalid.
func LoadPolicy(path string, log *logger.Logger) Policy {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultPolicy()
	}
	raw, err := os.ReadFile(path)
	if err == nil {
		var p Policy
		if p, err = ParsePolicy(raw); err == nil {
			if log != nil {
				log.Info("escalation policy loaded", "path", path)
			}
			return p
		}
	}
	if log != nil {
		log.Warn("escalation policy unusable, using embedded default", "path", path, "error", err)
	}
	return DefaultPolicy()
}

func (p *Policy) validate() error {
	if p.Thresholds.Escalate <= 0 || p.Thresholds.High <= 0 || p.Thresholds.Urgent <= 0 {
		return fmt.Errorf("escalation policy: thresholds must be positive")
	}
	if p.Thresholds.Urgent < p.Thresholds.High {
		return fmt.Errorf("escalation policy: urgent threshold below high threshold")
	}
	for _, lvl := range []Level{LevelNormal, LevelHigh, LevelUrgent} {
		if p.SLA[lvl] <= 0 {
			return fmt.Errorf("escalation policy: missing sla for %s", lvl)
		}
	}
	return nil
}

func (p *Policy) normalize() {
	sort.SliceStable(p.AffectedTiers, func(i, j int) bool { return p.AffectedTiers[i].Above > p.AffectedTiers[j].Above })
	for i, c := range p.Critical.Categories {
		p.Critical.Categories[i] = strings.ToLower(strings.TrimSpace(c))
	}
	teams := make(map[string]string, len(p.Teams))
	for k, v := range p.Teams {
		teams[strings.ToLower(strings.TrimSpace(k))] = v
	}
	p.Teams = teams
	if strings.TrimSpace(p.DefaultTeam) == "" {
		p.DefaultTeam = "incident_response_team"
	}
}

func (p Policy) TeamFor(category string) string {
	if t, ok := p.Teams[strings.ToLower(strings.TrimSpace(category))]; ok && t != "" {
		return t
	}
	return p.DefaultTeam
}

func (p Policy) isCritical(category string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, k := range p.Critical.Categories {
		if k == c {
			return true
		}
	}
	return false
}
