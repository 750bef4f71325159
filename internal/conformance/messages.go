package conformance

import (
	"fmt"
	"strings"

	"structest/internal/match"
)

// MessageKey names a failure message template. A localizing sink can
// replace the entries of Catalog; the argument order is part of the key.
type MessageKey string

const (
	MsgClassNotFound  MessageKey = "structural.class.notFound"
	MsgClassAbstract  MessageKey = "structural.class.abstract"
	MsgClassEnum      MessageKey = "structural.class.enum"
	MsgClassInterface MessageKey = "structural.class.interface"
	MsgClassModifiers MessageKey = "structural.class.modifiers"
	MsgClassExtends   MessageKey = "structural.class.extends"
	MsgClassImplement MessageKey = "structural.class.implements"
	MsgClassAnnot     MessageKey = "structural.class.annotations"

	MsgMemberParameters  MessageKey = "structural.member.parameters"
	MsgMemberModifiers   MessageKey = "structural.member.modifiers"
	MsgMemberAnnotations MessageKey = "structural.member.annotations"
	MsgMemberReturnType  MessageKey = "structural.member.returnType"
	MsgMemberCombination MessageKey = "structural.member.combination"
	MsgMethodNotFound    MessageKey = "structural.method.notFound"

	MsgAttributeNotFound    MessageKey = "structural.attribute.notFound"
	MsgAttributeType        MessageKey = "structural.attribute.type"
	MsgAttributeModifiers   MessageKey = "structural.attribute.modifiers"
	MsgAttributeAnnotations MessageKey = "structural.attribute.annotations"

	MsgEnumNotEnum  MessageKey = "structural.enum.notEnum"
	MsgEnumConstant MessageKey = "structural.enum.constant"
)

// Catalog maps message keys to fmt templates.
var Catalog = map[MessageKey]string{
	MsgClassNotFound:  "The class '%s' was not found for the %s test.",
	MsgClassAbstract:  "The class '%s' is not abstract as it is expected.",
	MsgClassEnum:      "The type '%s' is not an enum as it is expected.",
	MsgClassInterface: "The type '%s' is not an interface as it is expected.",
	MsgClassModifiers: "The modifier(s) (access type, abstract, etc.) of the class '%s' are not implemented as expected.",
	MsgClassExtends:   "The class '%s' does not extend the class '%s' as expected.",
	MsgClassImplement: "The class '%s' does not implement the interface '%s' as expected.",
	MsgClassAnnot:     "The annotation(s) of the class '%s' are not implemented as expected.",

	MsgMemberParameters:  "The parameters of %s are not implemented as expected.",
	MsgMemberModifiers:   "The access modifiers of %s are not implemented as expected.",
	MsgMemberAnnotations: "The annotation(s) of %s are not implemented as expected.",
	MsgMemberReturnType:  "The return type of %s is not implemented as expected.",
	MsgMemberCombination: "No single declaration matches %s in all of parameters, modifiers and annotations.",
	MsgMethodNotFound:    "The expected method '%s' of the class '%s' was not found.",

	MsgAttributeNotFound:    "The expected attribute '%s' of the class '%s' was not found.",
	MsgAttributeType:        "The type of the attribute '%s' of the class '%s' is not implemented as expected.",
	MsgAttributeModifiers:   "The access modifiers of the attribute '%s' of the class '%s' are not implemented as expected.",
	MsgAttributeAnnotations: "The annotation(s) of the attribute '%s' of the class '%s' are not implemented as expected.",

	MsgEnumNotEnum:  "The type '%s' is not an enum as it is expected.",
	MsgEnumConstant: "The enum '%s' does not contain the constant '%s'.",
}

// Failure is one failing dimension of an expectation.
type Failure struct {
	Key     MessageKey `json:"key"`
	Args    []string   `json:"args,omitempty"`
	Message string     `json:"message"`

	// Missing and Unexpected are set on modifier failures.
	Missing    []string `json:"missing,omitempty"`
	Unexpected []string `json:"unexpected,omitempty"`
}

func newFailure(key MessageKey, args ...string) Failure {
	return Failure{Key: key, Args: args, Message: formatMessage(key, args...)}
}

// modifierFailure is newFailure with the token difference between the
// declared and the expected modifiers appended to the message.
func modifierFailure(key MessageKey, actual, expected []string, args ...string) Failure {
	f := newFailure(key, args...)
	f.Missing, f.Unexpected = match.ModifierDiff(actual, expected)
	if len(f.Missing) > 0 {
		f.Message += " Missing: [" + strings.Join(f.Missing, ", ") + "]."
	}
	if len(f.Unexpected) > 0 {
		f.Message += " Unexpected: [" + strings.Join(f.Unexpected, ", ") + "]."
	}
	return f
}

func formatMessage(key MessageKey, args ...string) string {
	tmpl, ok := Catalog[key]
	if !ok {
		return string(key) + ": " + strings.Join(args, ", ")
	}
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a
	}
	return fmt.Sprintf(tmpl, vals...)
}

// describeConstructor renders the constructor phrase used by member messages.
func describeConstructor(class string, params []string) string {
	return "the expected constructor of the class '" + class + "' with " + describeParams(params)
}

func describeMethod(class, name string, params []string) string {
	return "the expected method '" + name + "' of the class '" + class + "' with " + describeParams(params)
}

func describeParams(params []string) string {
	if len(params) == 0 {
		return "no parameters"
	}
	return "the parameters: [" + strings.Join(params, ", ") + "]"
}
