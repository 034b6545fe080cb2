package config

// DefaultConfigYAML is the starter configuration written by `medic config init`.
// It mirrors the built-in defaults so a fresh file changes nothing until edited.
const DefaultConfigYAML = `# medic configuration
#
# Every key is optional; omitted keys fall back to built-in defaults.
# Environment variables override file values, e.g. MEDIC_RUN_CONCURRENCY=4.

checks:
  system: true
  security: true
  network: true
  processes: true
  logs: true
  backup: true
  tls: true
  email: true
  database: true
  packages: true
  cron: true
  webapp: true
  panel: true
  antivirus: true

run:
  concurrency: 1          # checkers run in parallel when > 1
  checker_timeout: 120s   # per-checker deadline
  probe_timeout: 30s      # per external command

baseline:
  dir: ""                 # default: $XDG_STATE_HOME/medic/baselines
  retention: 30           # snapshots kept by ` + "`medic baseline prune`" + `
  hysteresis: 10          # score dead band for degraded/improved

paths:
  auth_log: /var/log/auth.log
  mail_log: /var/log/mail.log
  web_error_logs:
    - /var/log/nginx/error.log
  panel_log: /var/log/plesk/panel.log
  backup_roots:
    - /var/backups
  cert_paths: []
  log_dirs:
    - /var/log

security:
  allowed_ports: [22, 25, 80, 443]
  scan_dirs:
    - /etc
    - /var/www
  exclude: []             # gitignore-style patterns for the file scan

network:
  resolve_names:
    - example.com
  connect_probes: []      # host:port pairs

processes:
  required_services:
    - sshd
    - cron

webapp:
  endpoints: []           # URLs probed for 2xx/3xx

email:
  smtp_host: ""
  smtp_port: 587
  smtp_user: ""
  smtp_password: ""
  from: ""
  to: []
`

// DefaultConfigMap returns the default configuration as a nested map
// using the on-disk key names. `medic config init --format toml`
// marshals this; DefaultConfigYAML is the same content with comments.
func DefaultConfigMap() map[string]any {
	checks := make(map[string]any, len(Categories))
	for _, category := range Categories {
		checks[category] = true
	}
	return map[string]any{
		"checks": checks,
		"run": map[string]any{
			"concurrency":     1,
			"checker_timeout": "120s",
			"probe_timeout":   "30s",
		},
		"baseline": map[string]any{
			"dir":        "",
			"retention":  30,
			"hysteresis": 10,
		},
		"paths": map[string]any{
			"auth_log":       "/var/log/auth.log",
			"mail_log":       "/var/log/mail.log",
			"web_error_logs": []string{"/var/log/nginx/error.log"},
			"panel_log":      "/var/log/plesk/panel.log",
			"backup_roots":   []string{"/var/backups"},
			"cert_paths":     []string{},
			"log_dirs":       []string{"/var/log"},
		},
		"security": map[string]any{
			"allowed_ports": []int{22, 25, 80, 443},
			"scan_dirs":     []string{"/etc", "/var/www"},
			"exclude":       []string{},
		},
		"network": map[string]any{
			"resolve_names":  []string{"example.com"},
			"connect_probes": []string{},
		},
		"processes": map[string]any{
			"required_services": []string{"sshd", "cron"},
		},
		"webapp": map[string]any{
			"endpoints": []string{},
		},
		"email": map[string]any{
			"smtp_host":     "",
			"smtp_port":     587,
			"smtp_user":     "",
			"smtp_password": "",
			"from":          "",
			"to":            []string{},
		},
	}
}
