package handler

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/gotus/gotus/internal/uid"
)

// Extensions controls which optional protocol features the handler
// advertises and serves. Requests for a disabled extension are answered
// as if the feature did not exist.
type Extensions struct {
	Creation            bool
	CreationWithUpload  bool
	CreationDeferLength bool
	Termination         bool
	Concatenation       bool
	Getting             bool
	Checksum            bool
}

// AllExtensions returns an Extensions value with every feature enabled.
func AllExtensions() Extensions {
	return Extensions{
		Creation:            true,
		CreationWithUpload:  true,
		CreationDeferLength: true,
		Termination:         true,
		Concatenation:       true,
		Getting:             true,
		Checksum:            true,
	}
}

// ParseExtensions builds an Extensions value from a comma-separated list
// of extension names as they appear in the Tus-Extension header. Unknown
// names yield an error. Sub-extensions do not imply their parent:
// enabling creation-with-upload without creation leaves POST disabled.
func ParseExtensions(list string) (Extensions, error) {
	var ext Extensions
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "":
		case "creation":
			ext.Creation = true
		case "creation-with-upload":
			ext.CreationWithUpload = true
		case "creation-defer-length":
			ext.CreationDeferLength = true
		case "termination":
			ext.Termination = true
		case "concatenation":
			ext.Concatenation = true
		case "getting":
			ext.Getting = true
		case "checksum":
			ext.Checksum = true
		default:
			return Extensions{}, errors.New("unknown extension: " + name)
		}
	}
	return ext, nil
}

// String renders the enabled extensions for the Tus-Extension header.
// The getting extension, although a protocol addition of this server, is
// advertised like the official ones.
func (ext Extensions) String() string {
	var names []string
	if ext.Creation {
		names = append(names, "creation")
		if ext.CreationWithUpload {
			names = append(names, "creation-with-upload")
		}
		if ext.CreationDeferLength {
			names = append(names, "creation-defer-length")
		}
	}
	if ext.Termination {
		names = append(names, "termination")
	}
	if ext.Concatenation {
		names = append(names, "concatenation")
	}
	if ext.Getting {
		names = append(names, "getting")
	}
	if ext.Checksum {
		names = append(names, "checksum")
	}
	return strings.Join(names, ",")
}

// Config provides a way to configure the Handler depending on your needs.
type Config struct {
	// Store is the DataStore holding the payload bytes of all uploads.
	Store DataStore
	// InfoStore holds the per-upload metadata records.
	InfoStore InfoStore
	// MaxSize defines how many bytes may be stored in one single upload.
	// If 0 or smaller no limit will be enforced.
	MaxSize int64
	// MaxRequestBodySize limits the size of a single PATCH or
	// creation-with-upload request body. If 0 or smaller no limit will be
	// enforced.
	MaxRequestBodySize int64
	// BasePath defines the URL path used for handling uploads, e.g.
	// "/files/". If no trailing slash is presented it will be added.
	BasePath string
	isAbs    bool
	// Extensions selects the optional protocol features to serve.
	Extensions Extensions
	// AllowEmpty accepts uploads whose declared size is zero. Such
	// uploads are complete the moment they are created.
	AllowEmpty bool
	// GenerateID creates the identifier for a new upload. If unset, a
	// random UUID is used.
	GenerateID func() string
	// RemoveParts deletes the partial uploads once a final upload
	// concatenating them has been assembled.
	RemoveParts bool
	// RespectForwardedHeaders enables taking the X-Forwarded-Host,
	// X-Forwarded-Proto and Forwarded headers into account when
	// generating the upload URL.
	RespectForwardedHeaders bool
	// Cors, if set, relaxes the default cross-origin behavior.
	Cors *CorsConfig
	// Logger is the logger to use internally.
	Logger *slog.Logger
	// NotifyCompleteUploads indicates whether sending notifications about
	// completed uploads using the CompleteUploads channel should be
	// enabled.
	NotifyCompleteUploads bool
	// NotifyTerminatedUploads indicates whether sending notifications
	// about terminated uploads using the TerminatedUploads channel should
	// be enabled.
	NotifyTerminatedUploads bool
	// NotifyReceivedChunks indicates whether sending notifications about
	// received chunks using the ReceivedChunks channel should be enabled.
	NotifyReceivedChunks bool
	// NotifyCreatedUploads indicates whether sending notifications about
	// created uploads using the CreatedUploads channel should be enabled.
	NotifyCreatedUploads bool
	// PreUploadCreateCallback will be invoked before a new upload is
	// created, if the property is supplied. If the callback returns no
	// error, the upload will be created. Otherwise the HTTP request will
	// be aborted and the error's response sent to the client.
	PreUploadCreateCallback func(hook HookEvent) (HTTPResponse, error)
	// PreUploadTerminateCallback will be invoked before an upload is
	// terminated. The same abort semantics as for
	// PreUploadCreateCallback apply.
	PreUploadTerminateCallback func(hook HookEvent) (HTTPResponse, error)
}

// CorsConfig defines the Cross-Origin Resource Sharing behavior.
type CorsConfig struct {
	// Disable turns off all CORS handling.
	Disable bool
	// AllowOrigin is the value for Access-Control-Allow-Origin.
	AllowOrigin string
	// AllowCredentials adds Access-Control-Allow-Credentials: true.
	AllowCredentials bool
	// AllowMethods is the value for Access-Control-Allow-Methods on
	// preflight responses.
	AllowMethods string
	// AllowHeaders is the value for Access-Control-Allow-Headers on
	// preflight responses.
	AllowHeaders string
	// MaxAge is the value for Access-Control-Max-Age on preflight
	// responses.
	MaxAge string
	// ExposeHeaders is the value for Access-Control-Expose-Headers.
	ExposeHeaders string
}

// DefaultCorsConfig is the configuration that will be used in absence of
// a user-provided one.
var DefaultCorsConfig = CorsConfig{
	AllowOrigin:      "*",
	AllowCredentials: false,
	AllowMethods:     "POST, HEAD, PATCH, OPTIONS, GET, DELETE",
	AllowHeaders:     "Authorization, Origin, X-Requested-With, X-Request-ID, X-HTTP-Method-Override, Content-Type, Upload-Length, Upload-Offset, Tus-Resumable, Upload-Metadata, Upload-Defer-Length, Upload-Concat, Upload-Checksum",
	MaxAge:           "86400",
	ExposeHeaders:    "Upload-Offset, Location, Upload-Length, Tus-Version, Tus-Resumable, Tus-Max-Size, Tus-Extension, Upload-Metadata, Upload-Defer-Length, Upload-Concat, Upload-Checksum, Tus-Checksum-Algorithm",
}

func (config *Config) validate() error {
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	base := config.BasePath
	uri, err := url.Parse(base)
	if err != nil {
		return err
	}

	// Ensure base path ends with slash to remove logic from absFileURL
	if base != "" && string(base[len(base)-1]) != "/" {
		base += "/"
	}

	// Ensure base path begins with slash if not absolute (starts with scheme)
	if !uri.IsAbs() && len(base) > 0 && string(base[0]) != "/" {
		base = "/" + base
	}
	config.BasePath = base
	config.isAbs = uri.IsAbs()

	if config.Store == nil {
		return errors.New("no data store supplied")
	}

	if config.InfoStore == nil {
		return errors.New("no info store supplied")
	}

	if config.Cors == nil {
		config.Cors = &DefaultCorsConfig
	}

	if config.GenerateID == nil {
		config.GenerateID = uid.Uid
	}

	return nil
}
