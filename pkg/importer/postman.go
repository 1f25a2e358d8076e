// Package importer builds workbook.Workbook trees from external collection
// and specification formats: Postman collections and OpenAPI/Swagger
// documents. Both importers produce plain Requests grouped by folder/path;
// neither assigns scenarios, authorizations, or test scripts, since none of
// that is recoverable from the source formats.
package importer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/rbretecher/go-postman-collection"

	"github.com/apicize/engine/pkg/workbook"
)

// FromPostmanCollection reads a Postman Collection v2.1 document and
// returns the equivalent workbook. Folders become Groups (executed
// sequentially, matching Postman's collection runner default); requests
// inside become child Requests.
func FromPostmanCollection(r io.Reader) (*workbook.Workbook, error) {
	collection, err := postman.ParseCollection(r)
	if err != nil {
		return nil, fmt.Errorf("parsing postman collection: %w", err)
	}

	wb := &workbook.Workbook{Version: 1}
	for _, item := range collection.Items {
		entry, err := postmanItemToEntry(item)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			wb.Requests = append(wb.Requests, *entry)
		}
	}
	return wb, nil
}

func postmanItemToEntry(item *postman.Items) (*workbook.RequestEntry, error) {
	if item.IsGroup() {
		grp := &workbook.Group{
			ID:        newImportID(),
			Name:      item.Name,
			Execution: workbook.ExecutionSequential,
		}
		for _, child := range item.Items {
			childEntry, err := postmanItemToEntry(child)
			if err != nil {
				return nil, err
			}
			if childEntry != nil {
				grp.Children = append(grp.Children, *childEntry)
			}
		}
		return &workbook.RequestEntry{Kind: workbook.KindGroup, Grp: grp}, nil
	}

	if item.Request == nil {
		return nil, nil
	}
	req := item.Request

	out := &workbook.Request{
		ID:     newImportID(),
		Name:   item.Name,
		Method: workbook.Method(strings.ToUpper(string(req.Method))),
	}
	if req.URL != nil {
		out.URL = req.URL.Raw
		for _, q := range req.URL.Query {
			out.QueryParams = append(out.QueryParams, workbook.NameValuePair{Name: q.Key, Value: q.Value})
		}
	}
	for _, h := range req.Header {
		out.Headers = append(out.Headers, workbook.NameValuePair{Name: h.Key, Value: h.Value, Disabled: h.Disabled})
	}
	if req.Body != nil {
		out.Body = postmanBodyToBody(req.Body)
	}

	return &workbook.RequestEntry{Kind: workbook.KindRequest, Req: out}, nil
}

func postmanBodyToBody(body *postman.Body) *workbook.Body {
	switch body.Mode {
	case postman.RawBody:
		return &workbook.Body{Type: workbook.BodyText, Text: body.Raw}
	case postman.URLEncodedBody:
		b := &workbook.Body{Type: workbook.BodyForm}
		for _, p := range body.URLEncoded {
			if p.Disabled {
				continue
			}
			b.Form = append(b.Form, workbook.NameValuePair{Name: p.Key, Value: p.Value})
		}
		return b
	case postman.FormDataBody:
		b := &workbook.Body{Type: workbook.BodyForm}
		for _, p := range body.FormData {
			if p.Disabled {
				continue
			}
			b.Form = append(b.Form, workbook.NameValuePair{Name: p.Key, Value: p.Value})
		}
		return b
	default:
		return nil
	}
}

// newImportID mints an id for an entity the source format has none for.
func newImportID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(buf[:])
}
