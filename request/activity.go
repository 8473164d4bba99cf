package request

import (
	"brein.evalgo.org/brerr"
	"brein.evalgo.org/config"
	"brein.evalgo.org/document"
	"brein.evalgo.org/signature"
)

// Keys of the activity subtree.
const (
	ActivityKey            = "activity"
	ActivityTypeKey        = "type"
	ActivityCategoryKey    = "category"
	ActivityDescriptionKey = "description"
	ActivityTagsKey        = "tags"
)

// Well-known activity types.
const (
	ActivityTypeLogin       = "login"
	ActivityTypeLogout      = "logout"
	ActivityTypeIdentify    = "identify"
	ActivityTypeSearch      = "search"
	ActivityTypePageVisit   = "pageVisit"
	ActivityTypeViewProduct = "viewProduct"
	ActivityTypeAddToCart   = "addToCart"
	ActivityTypeCheckout    = "checkOut"
)

// Activity reports something the user did.
type Activity struct {
	Base

	activityType string
	category     string
	description  string
	tags         document.Document
	fields       document.Document
}

// NewActivity creates an activity for user.
func NewActivity(user *User) *Activity {
	a := &Activity{
		tags:   document.New(),
		fields: document.New(),
	}
	a.SetUser(user)
	return a
}

// Kind implements Entity.
func (a *Activity) Kind() Kind { return KindActivity }

// Endpoint implements Entity.
func (a *Activity) Endpoint(cfg *config.Config) string { return cfg.Endpoint(KindActivity.String()) }

// SetType sets the activity type, e.g. ActivityTypeLogin.
func (a *Activity) SetType(activityType string) *Activity {
	a.activityType = activityType
	return a
}

// SetCategory sets the category. Left empty, the configured default
// category is used when the document is built.
func (a *Activity) SetCategory(category string) *Activity {
	a.category = category
	return a
}

// SetDescription sets a free-text description.
func (a *Activity) SetDescription(description string) *Activity {
	a.description = description
	return a
}

// Type returns the activity type.
func (a *Activity) Type() string { return a.activityType }

// Category returns the explicitly set category, not the configured default.
func (a *Activity) Category() string { return a.category }

// Description returns the description.
func (a *Activity) Description() string { return a.description }

// SetTag stores a tag. Tag values are strings, numbers or booleans; nil
// removes the tag.
func (a *Activity) SetTag(key string, value interface{}) error {
	if value == nil {
		delete(a.tags, key)
		return nil
	}
	if !document.IsScalar(value) {
		return brerr.Validation("request.Activity.SetTag", "tag %q must be a string, number or boolean, got %T", key, value)
	}
	a.tags[key] = value
	return nil
}

// SetTags stores every entry of tags.
func (a *Activity) SetTags(tags map[string]interface{}) error {
	for key, value := range tags {
		if err := a.SetTag(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Tags returns a copy of the tags.
func (a *Activity) Tags() document.Document {
	return document.CopyDocument(a.tags)
}

// SetField stores an extra field of the activity subtree. Tags have their
// own setters and are rejected here.
func (a *Activity) SetField(key string, value interface{}) error {
	if key == ActivityTagsKey {
		return brerr.Validation("request.Activity.SetField", "the field %q cannot be set, use SetTag", ActivityTagsKey)
	}
	if value != nil && !document.Valid(value) {
		return brerr.Validation("request.Activity.SetField", "unsupported value of type %T for %q", value, key)
	}
	a.fields.Set(key, document.Copy(value))
	return nil
}

// BuildDocument implements Entity.
func (a *Activity) BuildDocument(cfg *config.Config) (document.Document, error) {
	doc, err := a.baseDocument(cfg, "request.Activity.BuildDocument", true)
	if err != nil {
		return nil, err
	}

	category := a.category
	if category == "" {
		category = cfg.DefaultCategory
	}

	activity := document.New()
	document.Merge(activity, a.fields)
	document.Merge(activity, map[string]interface{}{
		ActivityTypeKey:        a.activityType,
		ActivityCategoryKey:    category,
		ActivityDescriptionKey: a.description,
	})

	tags := document.New()
	document.Merge(tags, a.tags)
	if len(tags) > 0 {
		activity[ActivityTagsKey] = tags
	}

	doc[ActivityKey] = activity
	return doc, nil
}

// SignatureMessage implements Entity.
func (a *Activity) SignatureMessage(doc document.Document) string {
	return signature.ActivityMessage(doc)
}
