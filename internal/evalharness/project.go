package evalharness

import (
	"encoding/xml"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

const (
	// TargetName is the target that evaluates the expressions.
	TargetName = "EvaluateExpressions"
	// ResultsFile is written next to the project, one value per line.
	ResultsFile = "results.txt"
	// EmptyValue stands in for an expression that evaluated to "".
	EmptyValue = "%EMPTY%"
)

// Project is a throwaway build project that sets Properties and writes the
// value of each expression in Expressions to ResultsFile.
type Project struct {
	Properties  map[string]string
	Expressions []string
}

type projectXML struct {
	XMLName       xml.Name `xml:"Project"`
	PropertyGroup propertyGroup
	Target        targetXML `xml:"Target"`
}

type propertyGroup struct {
	XMLName    xml.Name `xml:"PropertyGroup"`
	Properties []propertyXML
}

type propertyXML struct {
	XMLName   xml.Name
	Condition string `xml:"Condition,attr,omitempty"`
	Value     string `xml:",chardata"`
}

type targetXML struct {
	Name  string `xml:"Name,attr"`
	Tasks []any
}

type writeLinesXML struct {
	XMLName   xml.Name `xml:"WriteLinesToFile"`
	File      string   `xml:"File,attr"`
	Lines     string   `xml:"Lines,attr"`
	Overwrite bool     `xml:"Overwrite,attr"`
}

type deleteXML struct {
	XMLName xml.Name `xml:"Delete"`
	Files   string   `xml:"Files,attr"`
}

// Render returns the project file. Properties are written in name order.
func (p Project) Render() ([]byte, error) {
	project := projectXML{
		Target: targetXML{Name: TargetName},
	}

	for _, name := range slices.Sorted(maps.Keys(p.Properties)) {
		if !xmlName(name) {
			return nil, fmt.Errorf("invalid property name %q", name)
		}
		project.PropertyGroup.Properties = append(project.PropertyGroup.Properties, propertyXML{
			XMLName: xml.Name{Local: name},
			Value:   p.Properties[name],
		})
	}

	project.Target.Tasks = append(project.Target.Tasks, deleteXML{Files: ResultsFile})
	for i, expression := range p.Expressions {
		value := "_EvaluatedValue" + strconv.Itoa(i)
		project.Target.Tasks = append(project.Target.Tasks,
			propertyGroup{Properties: []propertyXML{
				{XMLName: xml.Name{Local: value}, Value: expression},
				{
					XMLName:   xml.Name{Local: value},
					Condition: "'$(" + value + ")' == ''",
					Value:     EmptyValue,
				},
			}},
			writeLinesXML{
				File:  ResultsFile,
				Lines: "$([MSBuild]::Escape($(" + value + ")))",
			},
		)
	}

	out, err := xml.MarshalIndent(project, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render project: %w", err)
	}
	return append(out, '\n'), nil
}

func xmlName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r == '.' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}
