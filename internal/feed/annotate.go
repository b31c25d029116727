package feed

import "fmt"

// AddPostURLs attaches a canonical, human-navigable URL to every post in the
// payload. Posts whose author and shortId are known get the pretty
// {base}/{username}/{shortId} form; anything else with an id falls back to
// {base}/posts/{id}. Re-running over an annotated payload overwrites the
// postUrl with the same value.
func AddPostURLs(p Payload, baseURL string) Payload {
	if p == nil {
		return p
	}

	usernames := make(map[string]string)
	for id, user := range p.UserMap() {
		if username := stringField(user, "username"); username != "" {
			usernames[id] = username
		}
	}

	if posts := p.Posts(); posts != nil {
		for _, post := range posts {
			setPostURL(post, baseURL, usernames)
		}
	} else if post, ok := p.Post(); ok {
		setPostURL(post, baseURL, usernames)
	}

	return p
}

func setPostURL(post map[string]any, baseURL string, usernames map[string]string) {
	postID := stringField(post, "id")
	shortID := stringField(post, "shortId")
	username := usernames[stringField(post, "createdBy")]

	switch {
	case username != "" && shortID != "":
		post["postUrl"] = fmt.Sprintf("%s/%s/%s", baseURL, username, shortID)
	case postID != "":
		post["postUrl"] = fmt.Sprintf("%s/posts/%s", baseURL, postID)
	}
}
