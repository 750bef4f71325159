package javasrc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"structest/internal/facts"

	"github.com/stretchr/testify/require"
)

const shapes = `package de.shapes;

import java.util.List;

@Deprecated
public abstract class Shape implements Comparable<Shape>, java.io.Serializable {
    private static final long serialVersionUID = 1L;
    protected final List<String> tags;
    int[] grid, matrix[];

    public Shape(String name, int... sizes) {
        this.tags = null;
    }

    Shape() {
        this(null);
    }

    @Override
    public int compareTo(Shape other) { return 0; }

    @Tag(value = "area", weight = -2, flags = {true, false}, kind = Kind.FAST)
    public abstract double area();

    static class Helper {}
}
`

const kinds = `package de.shapes;

public enum Color {
    RED, GREEN;

    Color() {}
}

interface Drawable extends Comparable<Drawable> {
    int SIZE = 3;
    void draw(String target);
    default void clear() {}
    static Drawable none() { return null; }
}

record Point(int x, int y) {
    public int x() { return x; }
}

final class Plain {}
`

func parse(t *testing.T, srcs ...Source) *Provider {
	t.Helper()
	p, err := FromSources(context.Background(), srcs, 2)
	require.NoError(t, err)
	return p
}

func lookup(t *testing.T, p *Provider, name string) facts.Class {
	t.Helper()
	c, found, err := p.Lookup(context.Background(), facts.ClassID{Package: "de.shapes", Name: name})
	require.NoError(t, err)
	require.True(t, found, "class %s not found", name)
	return c
}

func TestParseClass(t *testing.T) {
	p := parse(t, Source{Path: "Shape.java", Content: []byte(shapes)})
	shape := lookup(t, p, "Shape")

	require.Equal(t, []string{"public", "abstract"}, shape.Modifiers)
	require.True(t, shape.Abstract)
	require.Equal(t, &facts.TypeRef{Name: "Object"}, shape.Superclass)
	require.Equal(t, []facts.TypeRef{{Name: "Comparable", Generic: "Comparable<Shape>"}, {Name: "Serializable"}}, shape.Interfaces)
	require.Len(t, shape.Annotations, 1)
	require.Equal(t, "Deprecated", shape.Annotations[0].Name)

	require.Len(t, shape.Constructors, 2)
	require.Equal(t, []facts.TypeRef{{Name: "String"}, {Name: "int[]"}}, shape.Constructors[0].Params)
	require.Equal(t, []string{"public"}, shape.Constructors[0].Modifiers)
	require.Empty(t, shape.Constructors[1].Modifiers)

	tags, ok := shape.Field("tags")
	require.True(t, ok)
	require.Equal(t, facts.TypeRef{Name: "List", Generic: "List<String>"}, tags.Type)
	require.Equal(t, []string{"protected", "final"}, tags.Modifiers)
	uid, _ := shape.Field("serialVersionUID")
	require.Equal(t, []string{"private", "static", "final"}, uid.Modifiers)
	grid, _ := shape.Field("grid")
	require.Equal(t, "int[]", grid.Type.Name)
	matrix, _ := shape.Field("matrix")
	require.Equal(t, "int[][]", matrix.Type.Name)

	compare := shape.MethodsNamed("compareTo")
	require.Len(t, compare, 1)
	require.Equal(t, "int", compare[0].Return.Name)
	require.Equal(t, "Override", compare[0].Annotations[0].Name)

	area := shape.MethodsNamed("area")[0]
	require.Equal(t, []string{"public", "abstract"}, area.Modifiers)
	tag := area.Annotations[0]
	require.Equal(t, facts.Value{Kind: facts.KindString, Str: "area"}, tag.Args["value"])
	require.Equal(t, -2.0, tag.Args["weight"].Num)
	require.Equal(t, facts.KindArray, tag.Args["flags"].Kind)
	require.Len(t, tag.Args["flags"].Items, 2)
	require.Equal(t, facts.Value{Kind: facts.KindSymbol, Str: "Kind.FAST"}, tag.Args["kind"])

	helper := lookup(t, p, "Shape$Helper")
	require.Equal(t, []string{"static"}, helper.Modifiers)
	require.Len(t, helper.Constructors, 1)
	require.True(t, helper.Constructors[0].Implicit)
}

func TestParseImplicitSemantics(t *testing.T) {
	p := parse(t, Source{Path: "Kinds.java", Content: []byte(kinds)})

	color := lookup(t, p, "Color")
	require.True(t, color.Enum)
	require.Equal(t, []string{"public", "final"}, color.Modifiers)
	require.Equal(t, []string{"RED", "GREEN"}, color.EnumValues)
	require.Equal(t, "Enum<Color>", color.Superclass.Generic)
	require.Equal(t, []string{"private"}, color.Constructors[0].Modifiers)
	require.Len(t, color.MethodsNamed("valueOf"), 1)

	drawable := lookup(t, p, "Drawable")
	require.True(t, drawable.Interface)
	require.True(t, drawable.Abstract)
	require.Equal(t, []string{"abstract", "interface"}, drawable.Modifiers)
	require.Nil(t, drawable.Superclass)
	require.Empty(t, drawable.Constructors)
	size, _ := drawable.Field("SIZE")
	require.Equal(t, []string{"public", "static", "final"}, size.Modifiers)
	require.Equal(t, []string{"public", "abstract"}, drawable.MethodsNamed("draw")[0].Modifiers)
	require.Equal(t, []string{"public"}, drawable.MethodsNamed("clear")[0].Modifiers)
	require.Equal(t, []string{"public", "static"}, drawable.MethodsNamed("none")[0].Modifiers)

	point := lookup(t, p, "Point")
	require.Equal(t, []string{"final"}, point.Modifiers)
	require.Equal(t, "Record", point.Superclass.Name)
	x, _ := point.Field("x")
	require.Equal(t, []string{"private", "final"}, x.Modifiers)
	require.Len(t, point.MethodsNamed("x"), 1)
	require.False(t, point.MethodsNamed("x")[0].Implicit)
	require.True(t, point.MethodsNamed("y")[0].Implicit)
	require.Len(t, point.Constructors, 1)
	require.Equal(t, []facts.TypeRef{{Name: "int"}, {Name: "int"}}, point.Constructors[0].Params)

	plain := lookup(t, p, "Plain")
	require.Equal(t, []string{"final"}, plain.Modifiers)
	require.Empty(t, plain.Constructors[0].Modifiers)
}

func TestDuplicateClassAcrossFiles(t *testing.T) {
	src := []byte("package de.shapes;\nclass Twice {}\n")
	_, err := FromSources(context.Background(), []Source{{Path: "a/Twice.java", Content: src}, {Path: "b/Twice.java", Content: src}}, 2)
	require.ErrorContains(t, err, "declared in both")
}

func TestLoadDiscoversSources(t *testing.T) {
	root := t.TempDir()
	write := func(rel, body string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	write("src/de/shapes/Shape.java", shapes)
	write("src/de/shapes/Kinds.java", kinds)
	write("test/de/shapes/ShapeTest.java", "package de.shapes;\nclass ShapeTest {}\n")
	write("src/README.md", "not java")

	paths, err := Discover(root, []string{"**/*.java", "!test/**"})
	require.NoError(t, err)
	require.Equal(t, []string{"src/de/shapes/Kinds.java", "src/de/shapes/Shape.java"}, paths)

	p, err := Load(context.Background(), root, []string{"src/**/*.java"}, 4)
	require.NoError(t, err)
	origin, ok := p.Origin(facts.ClassID{Package: "de.shapes", Name: "Color"})
	require.True(t, ok)
	require.Equal(t, "src/de/shapes/Kinds.java", origin)

	classes, err := p.Classes(context.Background())
	require.NoError(t, err)
	require.Len(t, classes, 6)

	_, err = Load(context.Background(), root, []string{"nothing/**/*.java"}, 1)
	require.Error(t, err)
}

func TestTypeRefOf(t *testing.T) {
	require.Equal(t, facts.TypeRef{Name: "Map", Generic: "Map<String,List<Integer>>"}, TypeRefOf("java.util.Map<String, List<Integer>>"))
	require.Equal(t, facts.TypeRef{Name: "String[]"}, TypeRefOf("String..."))
	require.Equal(t, facts.TypeRef{Name: "int[][]"}, TypeRefOf("int[][]"))
}
