package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"
)

const UploadLengthDeferred = "1"

var (
	reExtractFileID  = regexp.MustCompile(`([^/]+)\/?$`)
	reForwardedHost  = regexp.MustCompile(`host="?([^;"]+)`)
	reForwardedProto = regexp.MustCompile(`proto=(https?)`)
	reForwardedFor   = regexp.MustCompile(`for="?([^;," ]+)`)
	reMimeType       = regexp.MustCompile(`^[a-z]+\/[a-z0-9\-\+\.]+$`)
)

var (
	ErrMaxSizeExceeded           = NewError("ERR_MAX_SIZE_EXCEEDED", "maximum size exceeded", http.StatusBadRequest)
	ErrInvalidContentType        = NewError("ERR_INVALID_CONTENT_TYPE", "missing or invalid Content-Type header", http.StatusUnsupportedMediaType)
	ErrInvalidUploadLength       = NewError("ERR_INVALID_UPLOAD_LENGTH", "missing or invalid Upload-Length header", http.StatusBadRequest)
	ErrInvalidOffset             = NewError("ERR_INVALID_OFFSET", "missing or invalid Upload-Offset header", http.StatusUnsupportedMediaType)
	ErrNotFound                  = NewError("ERR_UPLOAD_NOT_FOUND", "upload not found", http.StatusNotFound)
	ErrMismatchOffset            = NewError("ERR_MISMATCHED_OFFSET", "mismatched offset", http.StatusConflict)
	ErrSizeExceeded              = NewError("ERR_UPLOAD_SIZE_EXCEEDED", "upload's size exceeded", http.StatusBadRequest)
	ErrNotImplemented            = NewError("ERR_NOT_IMPLEMENTED", "feature not implemented", http.StatusNotImplemented)
	ErrUploadNotFinished         = NewError("ERR_UPLOAD_NOT_FINISHED", "one of the partial uploads is not finished", http.StatusBadRequest)
	ErrNotPartialUpload          = NewError("ERR_NOT_PARTIAL_UPLOAD", "one of the uploads to concatenate is not a partial upload", http.StatusBadRequest)
	ErrInvalidConcat             = NewError("ERR_INVALID_CONCAT", "invalid Upload-Concat header", http.StatusBadRequest)
	ErrModifyFinal               = NewError("ERR_MODIFY_FINAL", "modifying a final upload is not allowed", http.StatusForbidden)
	ErrUploadFrozen              = NewError("ERR_UPLOAD_FROZEN", "upload has already received all of its bytes", http.StatusBadRequest)
	ErrSizeAlreadyKnown          = NewError("ERR_SIZE_ALREADY_KNOWN", "upload's size is already known", http.StatusBadRequest)
	ErrInvalidUploadDeferLength  = NewError("ERR_INVALID_UPLOAD_LENGTH_DEFER", "invalid Upload-Defer-Length header", http.StatusBadRequest)
	ErrEmptyUpload               = NewError("ERR_EMPTY_UPLOAD", "empty uploads are not allowed", http.StatusBadRequest)
	ErrChecksumMismatch          = NewError("ERR_CHECKSUM_MISMATCH", "chunk checksum does not match the Upload-Checksum header", 460)
	ErrUnknownHashAlgorithm      = NewError("ERR_UNKNOWN_HASH_ALGORITHM", "unsupported Upload-Checksum algorithm", http.StatusBadRequest)
	ErrInvalidChecksumHeader     = NewError("ERR_INVALID_CHECKSUM_HEADER", "invalid Upload-Checksum header", http.StatusBadRequest)
	ErrUploadRejectedByServer    = NewError("ERR_UPLOAD_REJECTED", "upload creation has been rejected by server", http.StatusBadRequest)
	ErrUploadTerminationRejected = NewError("ERR_TERMINATION_REJECTED", "upload termination has been rejected by server", http.StatusBadRequest)
)

// mimeInlineBrowserWhitelist is a map containing the MIME types which should
// be allowed to be rendered inline by a browser. Types outside of it are
// served as attachments to avoid executing attacker-controlled content in
// the server's origin.
var mimeInlineBrowserWhitelist = map[string]struct{}{
	"application/javascript": {},
	"application/json":       {},
	"application/wasm":       {},
}

// mimeInlinePrefixes lists the top-level MIME types whose subtypes are all
// safe to render inline.
var mimeInlinePrefixes = []string{"image/", "text/", "audio/", "video/"}

// UnroutedHandler exposes methods to handle requests as part of the tus
// protocol, such as PostFile, HeadFile, PatchFile and DelFile. In addition
// the GetFile method is provided which is, however, not part of the
// specification.
type UnroutedHandler struct {
	config        Config
	store         DataStore
	infoStore     InfoStore
	isBasePathAbs bool
	basePath      string
	extensions    Extensions

	// CompleteUploads is used to send notifications whenever an upload is
	// completed by a user. The HookEvent will contain information about this
	// upload after it is completed. Sending to this channel will only
	// happen if the NotifyCompleteUploads field is set to true in the Config
	// structure. Notifications will also be sent for completions using the
	// Concatenation extension.
	CompleteUploads chan HookEvent
	// TerminatedUploads is used to send notifications whenever an upload is
	// terminated by a user. The HookEvent will contain information about this
	// upload gathered before the termination. Sending to this channel will
	// only happen if the NotifyTerminatedUploads field is set to true in the
	// Config structure.
	TerminatedUploads chan HookEvent
	// ReceivedChunks is used to send notifications about each chunk which
	// has been fully persisted. Sending to this channel will only happen if
	// the NotifyReceivedChunks field is set to true in the Config structure.
	ReceivedChunks chan HookEvent
	// CreatedUploads is used to send notifications about the uploads having
	// been created. It triggers post creation and therefore has all the
	// HookEvent incl. the ID available already. It facilitates the
	// post-create hook. Sending to this channel will only happen if the
	// NotifyCreatedUploads field is set to true in the Config structure.
	CreatedUploads chan HookEvent
	// Metrics provides numbers of the usage for this handler.
	Metrics Metrics
}

// NewUnroutedHandler creates a new handler without routing using the given
// configuration. It exposes the http handlers which need to be combined with
// a router (aka mux) of your choice. If you are looking for preconfigured
// handler see NewHandler.
func NewUnroutedHandler(config Config) (*UnroutedHandler, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	handler := &UnroutedHandler{
		config:            config,
		store:             config.Store,
		infoStore:         config.InfoStore,
		basePath:          config.BasePath,
		isBasePathAbs:     config.isAbs,
		extensions:        config.Extensions,
		CompleteUploads:   make(chan HookEvent),
		TerminatedUploads: make(chan HookEvent),
		ReceivedChunks:    make(chan HookEvent),
		CreatedUploads:    make(chan HookEvent),
		Metrics:           newMetrics(),
	}

	return handler, nil
}

// SupportedExtensions returns a comma-separated list of the enabled tus
// extensions, as advertised in the Tus-Extension header.
func (handler *UnroutedHandler) SupportedExtensions() string {
	return handler.extensions.String()
}

// Middleware checks various aspects of the request and ensures that it
// conforms with the spec. Also handles method overriding for clients which
// cannot make PATCH AND DELETE requests. If you are using the tusd handlers
// directly you will need to wrap at least the POST and PATCH endpoints in
// this middleware.
func (handler *UnroutedHandler) Middleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := handler.newContext(w, r)

		// Allow overriding the HTTP method. The reason for this is that some
		// libraries/environments do not support PATCH and DELETE requests,
		// e.g. Flash in a browser and parts of Java.
		if newMethod := r.Header.Get("X-HTTP-Method-Override"); newMethod != "" {
			if override, ok := parseMethodOverride(newMethod); ok {
				r.Method = override
			}
		}

		handler.config.Logger.Info("RequestIncoming", "method", r.Method, "path", r.URL.Path, "requestId", getRequestId(r))

		handler.Metrics.incRequestsTotal(r.Method)

		header := w.Header()

		cors := handler.config.Cors
		if origin := r.Header.Get("Origin"); !cors.Disable && origin != "" {
			header.Set("Access-Control-Allow-Origin", cors.AllowOrigin)
			header.Set("Vary", "Origin")

			if cors.AllowCredentials {
				header.Add("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == "OPTIONS" {
				// Preflight request
				header.Add("Access-Control-Allow-Methods", cors.AllowMethods)
				header.Add("Access-Control-Allow-Headers", cors.AllowHeaders)
				header.Set("Access-Control-Max-Age", cors.MaxAge)
			} else {
				// Actual request
				header.Add("Access-Control-Expose-Headers", cors.ExposeHeaders)
			}
		}

		// Every response carries the protocol version headers.
		header.Set("Tus-Resumable", "1.0.0")
		header.Set("Tus-Version", "1.0.0")

		// Add nosniff to all responses https://golang.org/src/net/http/server.go#L1429
		header.Set("X-Content-Type-Options", "nosniff")

		// Set appropriate headers in case of OPTIONS method allowing protocol
		// discovery and end with a 204 No Content.
		if r.Method == "OPTIONS" {
			if handler.config.MaxSize > 0 {
				header.Set("Tus-Max-Size", strconv.FormatInt(handler.config.MaxSize, 10))
			}

			header.Set("Tus-Extension", handler.extensions.String())

			if handler.extensions.Checksum {
				header.Set("Tus-Checksum-Algorithm", strings.Join(checksumAlgorithms, ","))
			}

			handler.sendResp(c, HTTPResponse{
				StatusCode: http.StatusNoContent,
			})
			return
		}

		// Proceed with routing the request
		h.ServeHTTP(w, r)
	})
}

// PostFile creates a new file upload using the datastore after validating
// the length and parsing the metadata.
func (handler *UnroutedHandler) PostFile(w http.ResponseWriter, r *http.Request) {
	c := handler.newContext(w, r)

	if !handler.extensions.Creation {
		handler.sendError(c, ErrNotFound)
		return
	}

	// Check for presence of application/offset+octet-stream. If another
	// content type is defined, it will be ignored and treated as none was
	// set because some HTTP clients may enforce a default value for this
	// header.
	containsChunk := r.Header.Get("Content-Type") == "application/offset+octet-stream"

	// Only use the proper Upload-Concat header if the concatenation
	// extension is enabled.
	var concatHeader string
	if handler.extensions.Concatenation {
		concatHeader = r.Header.Get("Upload-Concat")
	}

	isPartial, isFinal, partialUploadIDs, err := parseConcat(concatHeader)
	if err != nil {
		handler.sendError(c, err)
		return
	}

	// If the upload is a final upload created by concatenating multiple
	// partial uploads the size is the sum of all sizes of these uploads (no
	// need for an Upload-Length header).
	var length *int64
	var partialUploads []FileInfo
	if isFinal {
		// A final upload must not contain a chunk within the creation request
		if containsChunk {
			handler.sendError(c, ErrModifyFinal)
			return
		}

		partialUploads, err = handler.loadPartialUploads(c, partialUploadIDs)
		if err != nil {
			handler.sendError(c, err)
			return
		}

		var finalSize int64
		for _, partial := range partialUploads {
			finalSize += *partial.Length
		}
		length = &finalSize
	} else {
		length, err = handler.validateNewUploadLengthHeaders(
			r.Header.Get("Upload-Length"),
			r.Header.Get("Upload-Defer-Length"),
		)
		if err != nil {
			handler.sendError(c, err)
			return
		}
	}

	// Test whether the size is still allowed
	if handler.config.MaxSize > 0 && length != nil && *length > handler.config.MaxSize {
		handler.sendError(c, ErrMaxSizeExceeded)
		return
	}

	if length != nil && *length == 0 && !handler.config.AllowEmpty && !isFinal {
		handler.sendError(c, ErrEmptyUpload)
		return
	}

	meta := ParseMetadataHeader(r.Header.Get("Upload-Metadata"))

	info := NewFileInfo(handler.config.GenerateID(), length, handler.store.Name(), meta)
	info.IsPartial = isPartial
	info.IsFinal = isFinal
	info.Parts = partialUploadIDs

	resp := HTTPResponse{
		StatusCode: http.StatusCreated,
		Header:     HTTPHeader{},
	}

	// The creation hook runs before anything is persisted, so a rejected
	// creation leaves neither a record nor a payload locator behind.
	if handler.config.PreUploadCreateCallback != nil {
		resp2, err := handler.config.PreUploadCreateCallback(newHookEvent(c, info))
		if err != nil {
			handler.sendError(c, err)
			return
		}
		resp = resp.MergeWith(resp2)
	}

	path, err := handler.store.Create(c, info)
	if err != nil {
		handler.sendError(c, err)
		return
	}
	info.Path = path

	if isFinal {
		if err := handler.store.Concat(c, info, partialUploads); err != nil {
			handler.sendError(c, err)
			return
		}
		info.Offset = *length

		if handler.config.RemoveParts {
			for _, partial := range partialUploads {
				if err := handler.store.Remove(c, partial); err != nil {
					handler.config.Logger.Error("PartialUploadRemoveError", "id", partial.ID, "error", err.Error())
				}
				if err := handler.infoStore.Remove(c, partial.ID); err != nil {
					handler.config.Logger.Error("PartialUploadInfoRemoveError", "id", partial.ID, "error", err.Error())
				}
			}
		}
	}

	// Append the initial chunk if the creation-with-upload extension is
	// enabled and the request carries one.
	if containsChunk && !isFinal && handler.extensions.CreationWithUpload {
		chunk, err := handler.readChunk(c, info)
		if err != nil {
			handler.sendError(c, err)
			return
		}

		if len(chunk) > 0 {
			if err := handler.store.Append(c, info, chunk); err != nil {
				handler.sendError(c, err)
				return
			}
			info.Offset = int64(len(chunk))
			handler.Metrics.incBytesReceived(uint64(len(chunk)))
		}
	}

	if err := handler.infoStore.Set(c, info, true); err != nil {
		handler.sendError(c, err)
		return
	}

	handler.Metrics.incUploadsCreated()
	handler.config.Logger.Info("UploadCreated", "id", info.ID, "size", formatLength(info.Length), "url", handler.absFileURL(r, info.ID))

	// A creation which already received all of its bytes (an empty upload,
	// a creation-with-upload carrying everything or a final concat) counts
	// as finished, not as created. Only one of the two events fires.
	if info.IsComplete() && !info.IsPartial {
		handler.finishUpload(c, info)
	} else if handler.config.NotifyCreatedUploads {
		handler.CreatedUploads <- newHookEvent(c, info)
	}

	resp.Header["Location"] = handler.absFileURL(r, info.ID)
	resp.Header["Upload-Offset"] = strconv.FormatInt(info.Offset, 10)
	handler.sendResp(c, resp)
}

// HeadFile returns the length and offset for the HEAD request
func (handler *UnroutedHandler) HeadFile(w http.ResponseWriter, r *http.Request) {
	c := handler.newContext(w, r)

	info, err := handler.lookupUpload(c, r)
	if err != nil {
		handler.sendError(c, err)
		return
	}

	resp := HTTPResponse{
		StatusCode: http.StatusOK,
		Header:     HTTPHeader{},
	}

	// Add Upload-Concat header if possible
	if info.IsPartial {
		resp.Header["Upload-Concat"] = "partial"
	}

	if info.IsFinal {
		v := "final;"
		for _, uploadID := range info.Parts {
			v += handler.absFileURL(r, uploadID) + " "
		}
		// Remove trailing space
		v = v[:len(v)-1]
		resp.Header["Upload-Concat"] = v
	}

	if len(info.MetaData) != 0 {
		resp.Header["Upload-Metadata"] = SerializeMetadataHeader(info.MetaData)
	}

	if info.DeferredSize {
		resp.Header["Upload-Defer-Length"] = UploadLengthDeferred
	} else {
		resp.Header["Upload-Length"] = strconv.FormatInt(*info.Length, 10)
		resp.Header["Content-Length"] = strconv.FormatInt(info.Offset, 10)
	}

	resp.Header["Cache-Control"] = "no-store"
	resp.Header["Upload-Offset"] = strconv.FormatInt(info.Offset, 10)
	resp.Header["Upload-Created"] = strconv.FormatInt(info.CreatedAt.Unix(), 10)
	handler.sendResp(c, resp)
}

// PatchFile adds a chunk to an upload. This operation is only allowed
// if enough space in the upload is left.
func (handler *UnroutedHandler) PatchFile(w http.ResponseWriter, r *http.Request) {
	c := handler.newContext(w, r)

	// Check for presence of application/offset+octet-stream
	if r.Header.Get("Content-Type") != "application/offset+octet-stream" {
		handler.sendError(c, ErrInvalidContentType)
		return
	}

	// Check for presence of a valid Upload-Offset Header
	offset, err := strconv.ParseInt(r.Header.Get("Upload-Offset"), 10, 64)
	if err != nil || offset < 0 {
		handler.sendError(c, ErrInvalidOffset)
		return
	}

	info, err := handler.lookupUpload(c, r)
	if err != nil {
		handler.sendError(c, err)
		return
	}

	// Modifying a final upload is not allowed
	if info.IsFinal {
		handler.sendError(c, ErrModifyFinal)
		return
	}

	if offset != info.Offset {
		handler.sendError(c, ErrMismatchOffset)
		return
	}

	// The Upload-Length header on a PATCH resolves a deferred size.
	if lengthHeader := r.Header.Get("Upload-Length"); lengthHeader != "" {
		if !info.DeferredSize {
			handler.sendError(c, ErrSizeAlreadyKnown)
			return
		}

		length, err := strconv.ParseInt(lengthHeader, 10, 64)
		if err != nil || length < 0 {
			handler.sendError(c, ErrInvalidUploadLength)
			return
		}

		if length < info.Offset {
			handler.sendError(c, ErrMismatchOffset)
			return
		}

		if handler.config.MaxSize > 0 && length > handler.config.MaxSize {
			handler.sendError(c, ErrMaxSizeExceeded)
			return
		}

		info.SetLength(length)
	}

	// Do not proxy the call to the data store if the upload has already
	// received all of its bytes.
	if info.IsComplete() && r.ContentLength != 0 {
		handler.sendError(c, ErrUploadFrozen)
		return
	}

	chunk, err := handler.readChunk(c, info)
	if err != nil {
		handler.sendError(c, err)
		return
	}

	if handler.extensions.Checksum {
		if checksumHeader := r.Header.Get("Upload-Checksum"); checksumHeader != "" {
			if err := verifyChecksum(chunk, checksumHeader); err != nil {
				handler.sendError(c, err)
				return
			}
		}
	}

	if len(chunk) > 0 {
		if err := handler.store.Append(c, info, chunk); err != nil {
			handler.sendError(c, err)
			return
		}
		info.Offset += int64(len(chunk))
		handler.Metrics.incBytesReceived(uint64(len(chunk)))
	}

	if err := handler.infoStore.Set(c, info, false); err != nil {
		handler.sendError(c, err)
		return
	}

	handler.config.Logger.Info("ChunkWriteComplete", "id", info.ID, "bytesWritten", strconv.Itoa(len(chunk)), "offset", strconv.FormatInt(info.Offset, 10))

	// An append either received a chunk or finished the upload, never
	// both at once.
	if info.IsComplete() && !info.IsPartial {
		handler.finishUpload(c, info)
	} else if handler.config.NotifyReceivedChunks {
		handler.ReceivedChunks <- newHookEvent(c, info)
	}

	handler.sendResp(c, HTTPResponse{
		StatusCode: http.StatusNoContent,
		Header: HTTPHeader{
			"Upload-Offset": strconv.FormatInt(info.Offset, 10),
			"Cache-Control": "no-cache",
		},
	})
}

// GetFile handles requests to download a file using a GET request. This is
// not part of the specification itself but provided by this server as a
// protocol addition.
func (handler *UnroutedHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	c := handler.newContext(w, r)

	if !handler.extensions.Getting {
		handler.sendError(c, ErrNotFound)
		return
	}

	info, err := handler.lookupUpload(c, r)
	if err != nil {
		handler.sendError(c, err)
		return
	}

	streamed, err := handler.store.Stream(c, info)
	if err != nil {
		handler.sendError(c, err)
		return
	}
	defer streamed.Reader.Close()

	header := w.Header()
	header.Set("Content-Type", streamed.ContentType)
	header.Set("Content-Disposition", streamed.ContentDisposition)
	header.Set("Content-Length", strconv.FormatInt(info.Offset, 10))
	w.WriteHeader(http.StatusOK)

	io.Copy(w, streamed.Reader)

	handler.config.Logger.Info("ResponseOutgoing", "status", "200", "method", r.Method, "path", r.URL.Path, "requestId", getRequestId(r))
}

// DelFile terminates an upload permanently.
func (handler *UnroutedHandler) DelFile(w http.ResponseWriter, r *http.Request) {
	c := handler.newContext(w, r)

	if !handler.extensions.Termination {
		handler.sendError(c, ErrNotFound)
		return
	}

	info, err := handler.lookupUpload(c, r)
	if err != nil {
		handler.sendError(c, err)
		return
	}

	if handler.config.PreUploadTerminateCallback != nil {
		if _, err := handler.config.PreUploadTerminateCallback(newHookEvent(c, info)); err != nil {
			handler.sendError(c, err)
			return
		}
	}

	// The payload goes first. If its removal fails, the record survives
	// and the termination may be retried.
	if err := handler.store.Remove(c, info); err != nil && !errors.Is(err, ErrNotFound) {
		handler.sendError(c, err)
		return
	}

	if err := handler.infoStore.Remove(c, info.ID); err != nil {
		handler.sendError(c, err)
		return
	}

	handler.Metrics.incUploadsTerminated()
	handler.config.Logger.Info("UploadTerminated", "id", info.ID)

	if handler.config.NotifyTerminatedUploads {
		handler.TerminatedUploads <- newHookEvent(c, info)
	}

	handler.sendResp(c, HTTPResponse{
		StatusCode: http.StatusNoContent,
	})
}

// lookupUpload extracts the upload id from the request URL and loads its
// record, rejecting uploads owned by a different data store.
func (handler *UnroutedHandler) lookupUpload(c *httpContext, r *http.Request) (FileInfo, error) {
	id, err := extractIDFromPath(r.URL.Path)
	if err != nil {
		return FileInfo{}, err
	}

	info, err := handler.infoStore.Get(c, id)
	if err != nil {
		return FileInfo{}, err
	}

	if info.Storage != handler.store.Name() {
		// The upload belongs to another backend, so for this server it
		// does not exist.
		return FileInfo{}, ErrNotFound
	}

	return info, nil
}

// loadPartialUploads resolves the ids from a final Upload-Concat header
// and verifies every referenced upload is a finished partial upload.
func (handler *UnroutedHandler) loadPartialUploads(c *httpContext, ids []string) ([]FileInfo, error) {
	partialUploads := make([]FileInfo, len(ids))

	for i, id := range ids {
		info, err := handler.infoStore.Get(c, id)
		if err != nil {
			return nil, err
		}

		if info.Storage != handler.store.Name() {
			return nil, ErrNotFound
		}

		if !info.IsPartial {
			return nil, ErrNotPartialUpload
		}

		if !info.IsComplete() {
			return nil, ErrUploadNotFinished
		}

		partialUploads[i] = info
	}

	return partialUploads, nil
}

// validateNewUploadLengthHeaders validates the Upload-Length and
// Upload-Defer-Length headers of a creation request. Exactly one of them
// must be given. A nil length means the size is deferred.
func (handler *UnroutedHandler) validateNewUploadLengthHeaders(uploadLengthHeader string, uploadDeferLengthHeader string) (*int64, error) {
	haveBothLengthHeaders := uploadLengthHeader != "" && uploadDeferLengthHeader != ""
	haveInvalidDeferHeader := uploadDeferLengthHeader != "" && uploadDeferLengthHeader != UploadLengthDeferred

	if haveBothLengthHeaders || haveInvalidDeferHeader {
		return nil, ErrInvalidUploadDeferLength
	}

	if uploadDeferLengthHeader == UploadLengthDeferred {
		if !handler.extensions.CreationDeferLength {
			return nil, ErrInvalidUploadDeferLength
		}
		return nil, nil
	}

	length, err := strconv.ParseInt(uploadLengthHeader, 10, 64)
	if err != nil || length < 0 {
		return nil, ErrInvalidUploadLength
	}

	return &length, nil
}

// readChunk reads the request body, bounded by the upload's remaining
// declared size and the configured per-request body limit.
func (handler *UnroutedHandler) readChunk(c *httpContext, info FileInfo) ([]byte, error) {
	var reader io.Reader = c.req.Body

	// The limit is one byte above the hard cap so exceeding it is
	// distinguishable from exactly filling it.
	var limit int64 = -1
	if info.Length != nil {
		limit = *info.Length - info.Offset
	} else if handler.config.MaxSize > 0 {
		limit = handler.config.MaxSize - info.Offset
	}

	if maxBody := handler.config.MaxRequestBodySize; maxBody > 0 && (limit < 0 || maxBody < limit) {
		// A body larger than the per-request cap is truncated rather than
		// rejected; the client resumes from the acknowledged offset.
		chunk, err := io.ReadAll(io.LimitReader(reader, maxBody))
		if err != nil {
			return nil, err
		}
		return chunk, nil
	}

	if limit < 0 {
		return io.ReadAll(reader)
	}

	chunk, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(chunk)) > limit {
		return nil, ErrSizeExceeded
	}

	return chunk, nil
}

// finishUpload is called once an upload received all of its declared
// bytes. It emits the completion notification and updates the metrics.
func (handler *UnroutedHandler) finishUpload(c *httpContext, info FileInfo) {
	handler.Metrics.incUploadsFinished()
	handler.config.Logger.Info("UploadFinished", "id", info.ID, "size", formatLength(info.Length))

	if handler.config.NotifyCompleteUploads {
		handler.CompleteUploads <- newHookEvent(c, info)
	}
}

// sendResp writes the header to w with the specified status code.
func (handler *UnroutedHandler) sendResp(c *httpContext, resp HTTPResponse) {
	resp.writeTo(c.res)

	handler.config.Logger.Info("ResponseOutgoing", "status", strconv.Itoa(resp.StatusCode), "method", c.req.Method, "path", c.req.URL.Path, "requestId", getRequestId(c.req))
}

// sendError translates an error into a response to the client. Errors
// which are not an Error value are reported as an internal server error
// without leaking details beyond the message.
func (handler *UnroutedHandler) sendError(c *httpContext, err error) {
	var detailedErr Error
	if !errors.As(err, &detailedErr) {
		handler.config.Logger.Error("InternalServerError", "message", err.Error(), "method", c.req.Method, "path", c.req.URL.Path, "requestId", getRequestId(c.req))
		detailedErr = NewError("ERR_INTERNAL_SERVER_ERROR", err.Error(), http.StatusInternalServerError)
	}

	// If we are sending the response for a HEAD request, ensure that we are
	// not including any response body.
	if c.req.Method == "HEAD" {
		detailedErr.HTTPResponse.Body = ""
	}

	handler.Metrics.incErrorsTotal(detailedErr)
	handler.sendResp(c, detailedErr.HTTPResponse)
}

// absFileURL generates an absolute URL to the given upload id.
func (handler *UnroutedHandler) absFileURL(r *http.Request, id string) string {
	if handler.isBasePathAbs {
		return handler.basePath + id
	}

	// Read origin and protocol from request
	host, proto := getHostAndProtocol(r, handler.config.RespectForwardedHeaders)

	url := proto + "://" + host + handler.basePath + id

	return url
}

// getHostAndProtocol extracts the host and used protocol (either HTTP or
// HTTPS) from the given request. If `allowForwarded` is set, the
// X-Forwarded-Host, X-Forwarded-Proto and Forwarded headers will also be
// checked to support proxies.
func getHostAndProtocol(r *http.Request, allowForwarded bool) (host, proto string) {
	if r.TLS != nil {
		proto = "https"
	} else {
		proto = "http"
	}

	host = r.Host

	if !allowForwarded {
		return
	}

	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		host = h
	}

	if h := r.Header.Get("X-Forwarded-Proto"); h == "http" || h == "https" {
		proto = h
	}

	if h := r.Header.Get("Forwarded"); h != "" {
		if r := reForwardedHost.FindStringSubmatch(h); len(r) == 2 {
			host = r[1]
		}

		if r := reForwardedProto.FindStringSubmatch(h); len(r) == 2 {
			proto = r[1]
		}
	}

	// Remove default ports
	if proto == "http" {
		host = strings.TrimSuffix(host, ":80")
	}
	if proto == "https" {
		host = strings.TrimSuffix(host, ":443")
	}

	return
}

// FilterContentType returns the values for the Content-Type and
// Content-Disposition headers for a given upload. These values should be
// used in responses for GET requests to ensure that only non-malicious
// file types are shown directly in the browser. It will extract the file
// name and type from the "filetype", "filename" and "name" metadata
// entries, guessing the type from the file extension when none was
// declared.
func FilterContentType(info FileInfo) (contentType string, contentDisposition string) {
	filetype := info.MetaData["filetype"]
	if filetype == "" {
		// Without a declared type, guess one from the file extension.
		filetype = mime.TypeByExtension(path.Ext(info.Filename()))
	}

	if ft, _, err := mime.ParseMediaType(filetype); err == nil && reMimeType.MatchString(ft) {
		// If the resolved filetype is well formed, we forward use it. But
		// only allow a restricted list of mime types to be displayed
		// inline in the browser
		contentType = filetype
		if isInlineMimeType(ft) {
			contentDisposition = "inline"
		} else {
			contentDisposition = "attachment"
		}
	} else {
		// Otherwise we use a default type and force the browser to
		// download the content
		contentType = "application/octet-stream"
		contentDisposition = "attachment"
	}

	// Add a filename to Content-Disposition if one is available in the metadata
	contentDisposition += ";filename=" + strconv.Quote(info.Filename())

	return contentType, contentDisposition
}

func isInlineMimeType(mimeType string) bool {
	if _, ok := mimeInlineBrowserWhitelist[mimeType]; ok {
		return true
	}
	for _, prefix := range mimeInlinePrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// extractIDFromPath pulls the last segment from the url provided
func extractIDFromPath(url string) (string, error) {
	result := reExtractFileID.FindStringSubmatch(url)
	if len(result) != 2 {
		return "", ErrNotFound
	}
	return result[1], nil
}

// parseMethodOverride validates the X-HTTP-Method-Override value against
// the methods served by the handler. Unknown values leave the original
// method untouched.
func parseMethodOverride(method string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case "GET":
		return "GET", true
	case "HEAD":
		return "HEAD", true
	case "POST":
		return "POST", true
	case "PATCH":
		return "PATCH", true
	case "DELETE":
		return "DELETE", true
	case "OPTIONS":
		return "OPTIONS", true
	default:
		return "", false
	}
}

func formatLength(length *int64) string {
	if length == nil {
		return "deferred"
	}
	return strconv.FormatInt(*length, 10)
}

// getRequestId returns the value of the X-Request-ID header, if available,
// and also takes care of truncating the input.
func getRequestId(r *http.Request) string {
	reqId := r.Header.Get("X-Request-ID")
	if reqId == "" {
		return ""
	}

	// Limit the length of the request ID to 36 characters, which is enough
	// to fit a UUID.
	if len(reqId) > 36 {
		reqId = reqId[:36]
	}

	return reqId
}
