package client

import (
	"fmt"
	"net/url"
	"strings"
)

// resourceFromPath derives the signing resource type and resource link from
// a request path relative to the account root.
//
// Feed paths have an odd number of segments ("dbs", "dbs/A/colls"): the type
// is the final segment and the link is the parent item path, empty at account
// scope. Item paths have an even number ("dbs/A", "dbs/A/colls/B"): the type
// is the second-to-last segment and the link is the full path. Offers are the
// exception: they are addressed by resource id alone, which the service
// verifies lowercased.
func resourceFromPath(path string) (resourceType, resourceLink string) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "", ""
	}

	segments := strings.Split(trimmed, "/")
	if len(segments)%2 == 1 {
		resourceType = segments[len(segments)-1]
		resourceLink = strings.Join(segments[:len(segments)-1], "/")
	} else {
		resourceType = segments[len(segments)-2]
		resourceLink = trimmed
	}

	if resourceType == "offers" {
		resourceLink = strings.ToLower(strings.TrimPrefix(resourceLink, "offers/"))
	}

	return resourceType, resourceLink
}

// Resource path builders. IDs are escaped so that user-supplied names cannot
// alter the path structure.

func databasePath(db string) string {
	return "dbs/" + url.PathEscape(db)
}

func collectionPath(db, coll string) string {
	return fmt.Sprintf("dbs/%s/colls/%s", url.PathEscape(db), url.PathEscape(coll))
}

func documentPath(db, coll, id string) string {
	return fmt.Sprintf("dbs/%s/colls/%s/docs/%s", url.PathEscape(db), url.PathEscape(coll), url.PathEscape(id))
}
