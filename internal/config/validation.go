package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid value for %s: failed %q check", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if task, ok := c.Scheduler.Tasks[TaskUptimeMonitor]; ok && task.Enabled && c.Monitor.URL == "" {
		return errors.New("monitor.url is required when the uptime_monitor task is enabled")
	}
	return nil
}

// isMissingFile reports whether err means the explicitly named config file does not exist.
// viper only returns ConfigFileNotFoundError when searching config paths.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
