package handler

import (
	"encoding/base64"
	"sort"
	"strings"
)

// ParseMetadataHeader parses the Upload-Metadata header as defined in the
// tus specification: comma-separated key-value pairs where the value is
// Base64 encoded and may be omitted entirely for an empty value. Malformed
// pairs are silently skipped.
func ParseMetadataHeader(header string) MetaData {
	meta := make(MetaData)

	for _, element := range strings.Split(header, ",") {
		element = strings.TrimSpace(element)

		parts := strings.Split(element, " ")

		if len(parts) > 2 {
			continue
		}

		key := parts[0]
		if key == "" {
			continue
		}

		value := ""
		if len(parts) == 2 {
			// Ignore pairs whose value is no valid base64.
			dec, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				continue
			}
			value = string(dec)
		}

		meta[key] = value
	}

	return meta
}

// SerializeMetadataHeader renders meta into an Upload-Metadata header
// value. Keys are emitted in sorted order so the output is deterministic.
func SerializeMetadataHeader(meta MetaData) string {
	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	header := ""
	for _, key := range keys {
		value := base64.StdEncoding.EncodeToString([]byte(meta[key]))
		header += key + " " + value + ","
	}

	// Remove trailing comma
	if len(header) > 0 {
		header = header[:len(header)-1]
	}

	return header
}

// parseConcat parses the Upload-Concat header, returning whether the
// upload is partial or final and, for final uploads, the ids of its
// source uploads extracted from their upload URLs.
func parseConcat(header string) (isPartial bool, isFinal bool, partialUploadIDs []string, err error) {
	if len(header) == 0 {
		return
	}

	if header == "partial" {
		isPartial = true
		return
	}

	l := len("final;")
	if strings.HasPrefix(header, "final;") && len(header) > l {
		isFinal = true

		list := strings.Split(header[l:], " ")
		for _, value := range list {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}

			id, extractErr := extractIDFromURL(value)
			if extractErr != nil {
				err = extractErr
				return
			}

			partialUploadIDs = append(partialUploadIDs, id)
		}

		// If no valid upload ids are extracted this is not a correct
		// final header.
		if len(partialUploadIDs) == 0 {
			err = ErrInvalidConcat
			return
		}

		return
	}

	err = ErrInvalidConcat
	return
}

// extractIDFromURL pulls the upload id out of an upload URL, which is the
// last non-empty path segment.
func extractIDFromURL(url string) (string, error) {
	url = strings.Trim(url, "/")
	index := strings.LastIndex(url, "/")
	id := url
	if index != -1 {
		id = url[index+1:]
	}

	if id == "" {
		return "", ErrInvalidConcat
	}

	return id, nil
}
