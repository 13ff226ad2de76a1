package schema

import (
	"github.com/me/goramble/internal/config"
	"github.com/me/goramble/pkg/model"
)

// arrayOrScalarOfStringsOrNums accepts "a", 1 or ["a", 1].
func arrayOrScalarOfStringsOrNums() *Schema {
	return AnyOf(StringOrNum(), ArrayOf(StringOrNum()))
}

func outputCapture() *Schema {
	values := make([]string, len(model.OutputCaptures))
	for i, oc := range model.OutputCaptures {
		values[i] = string(oc)
	}
	return Enum(values...)
}

// variableValue is a scalar or a vector of scalars. Unlike ArrayOf it has
// no default, so a null variable is rejected.
func variableValue() *Schema {
	return AnyOf(StringOrNum(), &Schema{Types: []Type{TypeArray}, Items: StringOrNum()})
}

func variablesFragment() *Fragment {
	return NewFragment(FragmentVariables).
		Add("variables", MapOf(variableValue()))
}

// envVarActions is the action shape shared by env_vars and licenses.
func envVarActions() *Schema {
	modification := Object(NewFragment("env-var-modification").
		Add("var-separator", String()).
		Add("vars", MapOf(StringOrNum())).
		Add("paths", MapOf(StringOrNum())))
	return Object(NewFragment("env-var-actions").
		Add("set", MapOf(StringOrNum())).
		Add("unset", ArrayOf(String())).
		Add("append", ArrayOf(modification)).
		Add("prepend", ArrayOf(modification)))
}

func envVarsFragment() *Fragment {
	return NewFragment(FragmentEnvVars).Add("env_vars", envVarActions())
}

func licensesFragment() *Fragment {
	return NewFragment(FragmentLicenses).Add("licenses", MapOf(envVarActions()))
}

func successCriteriaFragment() *Fragment {
	criterion := Object(NewFragment("success-criterion").
		Add("name", String()).
		Add("mode", String()).
		Add("match", String()).
		Add("file", String()),
		"name", "mode")
	return NewFragment(FragmentSuccessCriteria).Add("success_criteria", ArrayOf(criterion))
}

func modifiersFragment() *Fragment {
	ref := Object(NewFragment("modifier-ref").
		Add("name", String()).
		Add("mode", String()).
		Add("on_executable", ArrayOf(String())),
		"name")
	return NewFragment(FragmentModifiers).Add("modifiers", ArrayOf(ref))
}

func internalsFragment(d config.Defaults) *Fragment {
	customExecutable := Object(NewFragment("custom-executable").
		Add("template", arrayOrScalarOfStringsOrNums()).
		Add("use_mpi", Boolean().WithDefault(false)).
		Add("redirect", StringOrNum().WithDefault(d.Redirect)).
		Add("output_capture", outputCapture().WithDefault(string(d.OutputCapture))))
	customExecutable.Default = map[string]any{
		"template":       []any{},
		"use_mpi":        false,
		"redirect":       d.Redirect,
		"output_capture": string(d.OutputCapture),
	}

	internals := Object(NewFragment("internals-body").
		Add("custom_executables", MapOf(customExecutable)).
		Add("executables", ArrayOf(StringOrNum())))

	chained := Object(NewFragment("chained-experiment").
		Add("name", String()).
		Add("command", String()).
		Add("order", Enum(string(model.ChainBefore), string(model.ChainAfter))).
		Add("variables", MapOf(variableValue())),
		"name")

	return NewFragment(FragmentInternals).
		Add("internals", internals).
		Add("chained_experiments", ArrayOf(chained)).
		Add("template", Boolean().WithDefault(false))
}

func matrixFragment() *Fragment {
	matrix := ArrayOf(String())
	return NewFragment(FragmentMatrix).
		Add("matrix", matrix).
		Add("matrices", ArrayOf(AnyOf(ArrayOf(String()), MapOf(ArrayOf(String())))))
}
